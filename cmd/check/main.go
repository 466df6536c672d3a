// check verifies a deployment before the first real scrape: config, selectors,
// cookie file and, with -launch, that a browser actually starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/extract"
	"go-cvbankas-scraper/utils"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config file")
	launch := flag.Bool("launch", false, "also start a browser and load a blank page")
	flag.Parse()

	if err := check(*cfgPath, *launch, utils.NewLogger(os.Stdout, slog.LevelInfo)); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✨ Check complete!")
}

func check(cfgPath string, launch bool, logger *slog.Logger) error {
	fmt.Println("🔧 Testing config loading...")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Driver: %s (headless: %t)\n", cfg.Browser.Driver, cfg.Browser.Headless)
	fmt.Printf("   Search URL: %s\n", cfg.Search.URLTemplate)
	fmt.Printf("   Output dir: %s\n", cfg.Output.Dir)
	fmt.Printf("   Telegram: %t\n", cfg.Telegram.Enabled())

	if _, err := extract.Compile(cfg.Extract); err != nil {
		return err
	}
	fmt.Printf("✅ %d card selectors compiled\n", len(cfg.Extract.Cards))

	if cfg.Browser.CookiesPath != "" {
		fmt.Println("🍪 Testing cookie loading...")
		cookies, err := browser.LoadCookies(cfg.Browser.CookiesPath)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Loaded %d cookies\n", len(cookies))
		if len(cookies) > 0 {
			c := cookies[0]
			fmt.Printf("   Example: %s (domain %s, secure %t)\n", c.Name, c.Domain, c.Secure)
		}
	}

	if !launch {
		return nil
	}

	fmt.Println("🌐 Testing browser launch...")
	launcher, err := browser.NewLauncher(cfg.Browser, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := launcher.Launch(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, "about:blank", cfg.Search.NavigationTimeout); err != nil {
		return err
	}
	n, err := sess.ElementCount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Browser started, blank page has %d elements\n", n)
	return nil
}
