package subscription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader resolves the subscription list from one of three sources, in
// priority order: a remote OPML document, a local OPML file, or a
// directory of per-feed YAML files.
type Loader struct {
	opmlURL   string
	opmlPath  string
	feedsDir  string
	userAgent string
	client    *http.Client
}

func NewLoader(opmlURL, opmlPath, feedsDir, userAgent string) *Loader {
	return &Loader{
		opmlURL:   opmlURL,
		opmlPath:  opmlPath,
		feedsDir:  feedsDir,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (l *Loader) Load(ctx context.Context) ([]Subscription, error) {
	switch {
	case l.opmlURL != "":
		return l.loadRemoteOPML(ctx)
	case l.opmlPath != "":
		return l.loadLocalOPML()
	case l.feedsDir != "":
		return l.loadDir()
	}
	return nil, fmt.Errorf("no subscription source configured")
}

func (l *Loader) loadRemoteOPML(ctx context.Context) ([]Subscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opmlURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create OPML request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OPML: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch OPML: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML response: %w", err)
	}

	subs, err := ParseOPML(data)
	if err != nil {
		return nil, err
	}

	slog.Info("Subscriptions loaded", "source", l.opmlURL, "count", len(subs))
	return subs, nil
}

func (l *Loader) loadLocalOPML() ([]Subscription, error) {
	data, err := os.ReadFile(l.opmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML file: %w", err)
	}

	subs, err := ParseOPML(data)
	if err != nil {
		return nil, err
	}

	slog.Info("Subscriptions loaded", "source", l.opmlPath, "count", len(subs))
	return subs, nil
}

// loadDir reads one YAML file per feed, the name derived from the
// filename. Invalid files abort the load: a broken subscription list is
// a startup failure, not something to limp past.
func (l *Loader) loadDir() ([]Subscription, error) {
	files, err := filepath.Glob(filepath.Join(l.feedsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(l.feedsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	var subs []Subscription
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		var sub Subscription
		if err := yaml.Unmarshal(data, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}

		if strings.TrimSpace(sub.FeedURL) == "" {
			return nil, fmt.Errorf("invalid config %s: feed url is required", file)
		}
		if sub.Title == "" {
			name := filepath.Base(file)
			sub.Title = strings.TrimSuffix(strings.TrimSuffix(name, ".yml"), ".yaml")
		}

		subs = append(subs, sub)
	}

	slog.Info("Subscriptions loaded", "source", l.feedsDir, "count", len(subs))
	return subs, nil
}
