package reporter

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/scraper"
)

// Sender is the part of tgbotapi.BotAPI the reporter uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramReporter struct {
	bot     Sender
	chatID  int64
	maxJobs int
	logger  *slog.Logger
}

func NewTelegramReporter(cfg config.Telegram, logger *slog.Logger) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	//turn this on in case of debug
	//bot.Debug = true

	return NewTelegramReporterWithSender(bot, cfg, logger), nil
}

func NewTelegramReporterWithSender(bot Sender, cfg config.Telegram, logger *slog.Logger) *TelegramReporter {
	return &TelegramReporter{
		bot:     bot,
		chatID:  cfg.ChatID,
		maxJobs: cfg.MaxJobs,
		logger:  logger,
	}
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML //use HTML for bold/italic
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

// SendResult posts a summary of res. Failures are logged, a missed
// notification never fails a scrape.
func (t *TelegramReporter) SendResult(res *scraper.Result) {
	if err := t.SendMessage(FormatResult(res, t.maxJobs)); err != nil {
		t.logger.Warn("telegram notification failed", "error", err)
	}
}

func (t *TelegramReporter) SendError(q scraper.Query, errReq error) {
	text := fmt.Sprintf("⚠️ <b>CVBankas scrape failed</b> (%s, %s):\n%s",
		html.EscapeString(q.JobTitle), html.EscapeString(q.City), html.EscapeString(errReq.Error()))
	if err := t.SendMessage(text); err != nil {
		t.logger.Warn("telegram notification failed", "error", err)
	}
}

// FormatResult renders res as Telegram HTML, listing at most maxJobs jobs.
func FormatResult(res *scraper.Result, maxJobs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 <b>%s</b> in <b>%s</b>\n", html.EscapeString(res.Query.JobTitle), html.EscapeString(res.Query.City))
	fmt.Fprintf(&b, "📦 %d jobs (%d cards on page)\n", len(res.Jobs), res.CardsFound)

	for i, job := range res.Jobs {
		if i >= maxJobs {
			fmt.Fprintf(&b, "\n… and %d more", len(res.Jobs)-maxJobs)
			break
		}
		fmt.Fprintf(&b, "\n🔥 <a href=\"%s\">%s</a>", html.EscapeString(job.URL), html.EscapeString(job.Title))
		if job.Company != "" {
			fmt.Fprintf(&b, "\n🏢 %s", html.EscapeString(job.Company))
		}
		if job.Location != "" {
			fmt.Fprintf(&b, "\n📍 %s", html.EscapeString(job.Location))
		}
		b.WriteString("\n")
	}
	return b.String()
}
