package reporter

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cvbankas-scraper/internal/config"
	"go-cvbankas-scraper/internal/scraper"
	"go-cvbankas-scraper/utils"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func result(n int) *scraper.Result {
	res := &scraper.Result{
		Query:      scraper.Query{JobTitle: "R&D <lead>", City: "Vilnius"},
		CardsFound: n + 1,
	}
	for i := 0; i < n; i++ {
		res.Jobs = append(res.Jobs, scraper.Job{
			Title:   "Programuotojas",
			Company: "Tech & Co",
			URL:     "https://www.cvbankas.lt/darbo-skelbimas/1?a=1&b=2",
		})
	}
	return res
}

func TestFormatResult(t *testing.T) {
	text := FormatResult(result(1), 10)

	assert.Contains(t, text, "<b>R&amp;D &lt;lead&gt;</b>")
	assert.Contains(t, text, "1 jobs (2 cards on page)")
	assert.Contains(t, text, `<a href="https://www.cvbankas.lt/darbo-skelbimas/1?a=1&amp;b=2">Programuotojas</a>`)
	assert.Contains(t, text, "🏢 Tech &amp; Co")
	assert.NotContains(t, text, "📍")
}

func TestFormatResult_Truncates(t *testing.T) {
	text := FormatResult(result(5), 2)
	assert.Contains(t, text, "and 3 more")
}

func TestSendResult(t *testing.T) {
	bot := &fakeBot{}
	r := NewTelegramReporterWithSender(bot, config.Telegram{ChatID: 42, MaxJobs: 10}, utils.DiscardLogger())

	r.SendResult(result(2))

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
}

func TestSendResult_FailureIsSwallowed(t *testing.T) {
	bot := &fakeBot{err: errors.New("unauthorized")}
	r := NewTelegramReporterWithSender(bot, config.Telegram{ChatID: 42}, utils.DiscardLogger())

	assert.NotPanics(t, func() {
		r.SendResult(result(0))
		r.SendError(scraper.Query{JobTitle: "go", City: "Vilnius"}, errors.New("navigation timed out"))
	})
	assert.Len(t, bot.sent, 2)
}
