package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"rssalert/app/feed"
	"rssalert/app/notify"
	"rssalert/app/runlog"
	"rssalert/app/store"
	"rssalert/app/subscription"
)

var errDeliveryUnconfirmed = errors.New("notification failed after retries")

// Summary is what one full run accomplished.
type Summary struct {
	Feeds       int       `json:"feeds"`
	NewArticles int       `json:"new_articles"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Runner sequences fetch, parse, dedupe, notify and commit for every
// subscription, and owns the commit protocol between the dedup cache
// and delivery.
//
// Fetching, parsing and normalization are per-feed pure work and fan
// out over a bounded worker pool. Everything that touches the shared
// cache runs strictly sequentially, in subscription order, so exactly
// one in-flight operation ever mutates it.
type Runner struct {
	fetcher    *feed.Fetcher
	parser     *feed.Parser
	normalizer *feed.Normalizer
	composer   *notify.Composer
	engine     *notify.Engine
	cache      *store.Cache
	store      store.Store
	log        *runlog.Writer
	workers    int

	mu          sync.Mutex
	lastSummary *Summary
}

func New(fetcher *feed.Fetcher, parser *feed.Parser, normalizer *feed.Normalizer,
	composer *notify.Composer, engine *notify.Engine,
	cache *store.Cache, st store.Store, log *runlog.Writer, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		fetcher:    fetcher,
		parser:     parser,
		normalizer: normalizer,
		composer:   composer,
		engine:     engine,
		cache:      cache,
		store:      st,
		log:        log,
		workers:    workers,
	}
}

// prepared is the output of the parallel stage for one subscription.
type prepared struct {
	entries []feed.Entry
	err     error
}

// Run processes every subscription once. One feed's failure never
// stops the next: errors land in the run log and processing advances.
func (r *Runner) Run(ctx context.Context, subs []subscription.Subscription) Summary {
	results := r.prepare(ctx, subs)

	totalNew := 0
	for i, sub := range subs {
		newCount, err := r.commit(ctx, sub, results[i])
		if err != nil {
			slog.Error("Feed processing failed", "feed", sub.Title, "url", sub.FeedURL, "error", err)
			r.log.Record(sub.Title, sub.FeedURL, false, err, newCount)
			continue
		}
		totalNew += newCount
		r.log.Record(sub.Title, sub.FeedURL, true, nil, newCount)
	}

	// Unconditional final persist: delivery-confirmed ids from this run
	// must survive even if an earlier checkpoint write failed.
	if err := r.store.Persist(r.cache.Snapshot()); err != nil {
		slog.Error("Final cache persist failed, next run may renotify", "error", err)
	}

	summary := Summary{
		Feeds:       len(subs),
		NewArticles: totalNew,
		FinishedAt:  time.Now(),
	}
	r.log.Summary(summary.Feeds, summary.NewArticles)
	slog.Info("Run completed", "feeds", summary.Feeds, "new_articles", summary.NewArticles)

	r.mu.Lock()
	r.lastSummary = &summary
	r.mu.Unlock()

	return summary
}

// LastSummary returns the most recent run's summary, or nil before the
// first run finishes.
func (r *Runner) LastSummary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSummary
}

// CacheSize reports the current number of committed identifiers.
func (r *Runner) CacheSize() int {
	return r.cache.Len()
}

// prepare runs fetch+parse+normalize for all subscriptions on a worker
// pool, preserving subscription order in the result slice.
func (r *Runner) prepare(ctx context.Context, subs []subscription.Subscription) []prepared {
	results := make([]prepared, len(subs))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.prepareOne(ctx, subs[i])
			}
		}()
	}

	for i := range subs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (r *Runner) prepareOne(ctx context.Context, sub subscription.Subscription) prepared {
	data, err := r.fetcher.Run(ctx, sub.FeedURL)
	if err != nil {
		return prepared{err: err}
	}

	metadata, items := r.parser.Run(data)
	if metadata != nil && metadata.Title != "" {
		slog.Debug("Feed parsed", "feed", metadata.Title, "items", len(items))
	}

	entries := make([]feed.Entry, 0, len(items))
	for _, item := range items {
		if entry, ok := r.normalizer.Run(item); ok {
			entries = append(entries, entry)
		}
	}

	return prepared{entries: entries}
}

// commit is the sequential half of one feed's processing: dedupe
// against the shared cache, deliver the digest, and only then admit the
// new identifiers to the cache and persist it. Failed delivery leaves
// the cache untouched so the same entries surface again next run.
func (r *Runner) commit(ctx context.Context, sub subscription.Subscription, prep prepared) (int, error) {
	if prep.err != nil {
		return 0, prep.err
	}

	newEntries := r.dedupe(prep.entries)
	if len(newEntries) == 0 {
		return 0, nil
	}

	sortNewestFirst(newEntries)

	subject, body := r.composer.Run(sub, newEntries)
	if !r.engine.Run(ctx, subject, body) {
		return len(newEntries), errDeliveryUnconfirmed
	}

	for _, entry := range newEntries {
		r.cache.Add(entry.ID)
	}
	if err := r.store.Persist(r.cache.Snapshot()); err != nil {
		// Delivery already happened; losing this write risks duplicate
		// notifications, not data loss. Log loudly and keep going.
		slog.Error("Cache persist failed after delivery", "feed", sub.Title, "error", err)
	}

	return len(newEntries), nil
}

// dedupe drops entries already committed to the cache, and collapses
// duplicates within the batch itself (the parser's dual extraction
// passes produce them routinely).
func (r *Runner) dedupe(entries []feed.Entry) []feed.Entry {
	seen := make(map[string]struct{})

	var fresh []feed.Entry
	for _, entry := range entries {
		if r.cache.Contains(entry.ID) {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		fresh = append(fresh, entry)
	}

	return fresh
}

// sortNewestFirst orders entries for the digest. Entries without a
// parseable date sort as earliest, so they end up last.
func sortNewestFirst(entries []feed.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if entries[i].PublishedAt != nil {
			ti = *entries[i].PublishedAt
		}
		if entries[j].PublishedAt != nil {
			tj = *entries[j].PublishedAt
		}
		return ti.After(tj)
	})
}

// Describe reports the runner's shape for startup logging.
func (r *Runner) Describe() string {
	return fmt.Sprintf("workers=%d cache=%d", r.workers, r.cache.Len())
}
