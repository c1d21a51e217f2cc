package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rssalert/app/runner"
	"rssalert/app/subscription"
)

// FeedRunner executes one full pass over the subscription list.
type FeedRunner interface {
	Run(ctx context.Context, subs []subscription.Subscription) runner.Summary
}

// Scheduler repeats full runs at a fixed interval for daemon mode.
// Runs execute one at a time; a run still in flight when the ticker
// fires simply delays the next one, which keeps the commit protocol's
// single-writer guarantee without any extra locking.
type Scheduler struct {
	runner   FeedRunner
	subs     []subscription.Subscription
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(r FeedRunner, subs []subscription.Subscription, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   r,
		subs:     subs,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.run()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.run()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	started := time.Now()
	slog.Debug("Scheduled run starting", "feeds", len(s.subs))

	summary := s.runner.Run(s.ctx, s.subs)

	slog.Debug("Scheduled run finished",
		"duration", time.Since(started),
		"feeds", summary.Feeds,
		"new_articles", summary.NewArticles)
}
