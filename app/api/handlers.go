package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rssalert/app/runner"
	"rssalert/app/subscription"
)

// StatsProvider reports run state for the status endpoints. The runner
// satisfies it.
type StatsProvider interface {
	LastSummary() *runner.Summary
	CacheSize() int
}

// Handler serves the daemon-mode status endpoints.
type Handler struct {
	stats   StatsProvider
	subs    []subscription.Subscription
	version string
}

func NewHandler(stats StatsProvider, subs []subscription.Subscription, version string) *Handler {
	return &Handler{stats: stats, subs: subs, version: version}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"feeds":      len(h.subs),
		"cache_size": h.stats.CacheSize(),
	}
	if summary := h.stats.LastSummary(); summary != nil {
		stats["last_run"] = summary
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds := make([]gin.H, 0, len(h.subs))
	for _, sub := range h.subs {
		feeds = append(feeds, gin.H{
			"title":   sub.Title,
			"url":     sub.FeedURL,
			"website": sub.WebsiteURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"feeds": feeds})
}
