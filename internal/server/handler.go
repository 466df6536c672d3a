package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-cvbankas-scraper/internal/output"
	"go-cvbankas-scraper/internal/scraper"
)

type ScrapeHandler struct {
	scraper scraper.Scraper
	logger  *slog.Logger
}

func NewScrapeHandler(s scraper.Scraper, logger *slog.Logger) *ScrapeHandler {
	return &ScrapeHandler{
		scraper: s,
		logger:  logger,
	}
}

// Health answers GET /.
func (h *ScrapeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": h.scraper.Name() + " scraper API is running!",
		"status":  "healthy",
	})
}

// Scrape answers GET /scrape?job=&city=. Every request gets its own browser.
func (h *ScrapeHandler) Scrape(c *gin.Context) {
	q := scraper.Query{
		JobTitle: c.Query("job"),
		City:     c.Query("city"),
	}
	log := h.logger.With("request_id", RequestID(c), "job", q.JobTitle, "city", q.City)

	// rejected before any browser work
	if err := q.Validate(); err != nil {
		log.Info("rejected scrape request", "error", err)
		c.JSON(http.StatusBadRequest, output.Failure(err))
		return
	}

	res, err := h.scraper.Scrape(c.Request.Context(), q)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scraper.ErrMissingQuery) {
			status = http.StatusBadRequest
		}
		log.Error("scrape failed", "status", status, "error", err)
		c.JSON(status, output.Failure(err))
		return
	}

	log.Info("scrape served", "results", len(res.Jobs), "cards_found", res.CardsFound)
	c.JSON(http.StatusOK, output.Success(res, ""))
}
