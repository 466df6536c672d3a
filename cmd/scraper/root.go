package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/reporter"
	"go-cvbankas-scraper/internal/scraper"
	"go-cvbankas-scraper/utils"
)

var errMissingArgs = errors.New("jobTitle and city must not be empty")

var (
	cfgPath      string
	debug        bool
	driver       string
	outDir       string
	noScreenshot bool
	notify       bool
)

var rootCmd = &cobra.Command{
	Use:   "scraper <jobTitle> <city> [timestamp]",
	Short: "Scrape cvbankas.lt job listings into a JSON file",
	Long: "Searches cvbankas.lt for jobTitle in city with a headless browser and writes\n" +
		"jobs-<timestamp>.json plus a debug-<timestamp>.png screenshot.",
	Example: `  scraper programuotojas Vilnius
  scraper "duomenų analitikas" Kaunas 2024-05-01`,
	Args: validateArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&driver, "driver", "", "browser driver: playwright or chromedp")
	rootCmd.Flags().StringVar(&outDir, "out", "", "directory for the results and screenshot files")
	rootCmd.Flags().BoolVar(&noScreenshot, "no-screenshot", false, "skip the debug screenshot")
	rootCmd.Flags().BoolVar(&notify, "notify", false, "post the results to Telegram")
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(2, 3)(cmd, args); err != nil {
		return err
	}
	if args[0] == "" || args[1] == "" {
		return errMissingArgs
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if driver != "" {
		cfg.Browser.Driver = driver
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if noScreenshot {
		cfg.Output.Screenshot = false
	}
	return cfg, cfg.Validate()
}

func setupLogger(level string, dbg bool) *slog.Logger {
	logLevel, err := config.ParseLevel(level)
	if err != nil {
		logLevel = slog.LevelInfo
	}
	if dbg {
		logLevel = slog.LevelDebug
	}
	return utils.NewLogger(os.Stdout, logLevel)
}

func runScrape(cmd *cobra.Command, args []string) error {
	// arguments are fine from here on, errors are not usage errors
	cmd.SilenceUsage = true

	logger := setupLogger("info", debug)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger = setupLogger(cfg.LogLevel, debug)

	launcher, err := browser.NewLauncher(cfg.Browser, logger)
	if err != nil {
		logger.Error("failed to set up browser", "error", err)
		return err
	}

	var n notifier
	if notify {
		n = setupNotifier(cfg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q := scraper.Query{JobTitle: args[0], City: args[1]}
	label := ""
	if len(args) == 3 {
		label = args[2]
	}

	r := &runner{
		cfg:      cfg,
		launcher: launcher,
		notifier: n,
		logger:   logger,
		now:      time.Now,
	}
	_, err = r.run(ctx, q, label)
	return err
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) notifier {
	if !cfg.Telegram.Enabled() {
		logger.Warn("--notify set but telegram token or chat id missing, skipping notifications")
		return nil
	}
	r, err := reporter.NewTelegramReporter(cfg.Telegram, logger)
	if err != nil {
		logger.Warn("telegram disabled", "error", err)
		return nil
	}
	logger.Info("🤖 Telegram notifications enabled")
	return r
}
