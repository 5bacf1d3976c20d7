// Package feed downloads and decodes GTFS-Realtime messages. Fetches are
// cached with per-feed TTLs and deduplicated with single-flight so that
// concurrent queries share one network operation per feed.
package feed

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/kcole93/metroflow-api-sub000/internal/cache"
	"github.com/kcole93/metroflow-api-sub000/internal/logging"
)

const fetchTimeout = 25 * time.Second

// TTLConfig holds the cache windows per feed family. The family is chosen
// by substring match on the cache key.
type TTLConfig struct {
	Subway time.Duration
	Rail   time.Duration
	Alerts time.Duration
}

func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Subway: 30 * time.Second,
		Rail:   60 * time.Second,
		Alerts: 120 * time.Second,
	}
}

type Fetcher struct {
	client *http.Client
	cache  *cache.Cache[*gtfsrt.FeedMessage]
	ttls   TTLConfig
}

func NewFetcher(ttls TTLConfig) *Fetcher {
	if ttls.Subway == 0 {
		ttls.Subway = DefaultTTLConfig().Subway
	}
	if ttls.Rail == 0 {
		ttls.Rail = DefaultTTLConfig().Rail
	}
	if ttls.Alerts == 0 {
		ttls.Alerts = DefaultTTLConfig().Alerts
	}
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		cache:  cache.New[*gtfsrt.FeedMessage](),
		ttls:   ttls,
	}
}

// FetchAndDecode returns the decoded feed for feedURL, from cache when the
// entry is fresh. Every failure mode resolves to nil with a warning; a
// failed fetch never populates the cache and never takes down a query.
func (f *Fetcher) FetchAndDecode(ctx context.Context, feedURL, logicalName string) *gtfsrt.FeedMessage {
	logger := logging.FromContext(ctx).With(
		slog.String("component", "feed_fetcher"),
		slog.String("feed", logicalName))

	key := cacheKey(logicalName, feedURL)

	if msg, ok := f.cache.Get(key); ok {
		if len(msg.GetEntity()) > 0 {
			cacheEvents.WithLabelValues(logicalName, "hit").Inc()
			return msg
		}
		// A cached message with no entities is suspect; drop it and try
		// one uncached refetch.
		cacheEvents.WithLabelValues(logicalName, "empty_discard").Inc()
		f.cache.Delete(key)
	} else {
		cacheEvents.WithLabelValues(logicalName, "miss").Inc()
	}

	msg, err := f.cache.Load(key, func() (*gtfsrt.FeedMessage, error) {
		decoded := f.fetchOnce(ctx, logger, feedURL, logicalName)
		if decoded != nil {
			f.cache.Set(key, decoded, f.ttlFor(key))
		}
		return decoded, nil
	})
	if err != nil || msg == nil {
		return nil
	}
	return msg
}

func (f *Fetcher) fetchOnce(ctx context.Context, logger *slog.Logger, feedURL, logicalName string) *gtfsrt.FeedMessage {
	start := time.Now()
	outcome := "error"
	defer func() {
		fetchTotal.WithLabelValues(logicalName, outcome).Inc()
		fetchDuration.WithLabelValues(logicalName).Observe(time.Since(start).Seconds())
	}()

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		logging.LogError(logger, "building feed request failed", err, slog.String("url", feedURL))
		return nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Warn("feed fetch failed", slog.String("url", feedURL), slog.Any("error", err))
		return nil
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "feed_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("feed returned non-2xx status",
			slog.String("url", feedURL),
			slog.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("reading feed body failed", slog.String("url", feedURL), slog.Any("error", err))
		return nil
	}

	if len(body) == 0 {
		logger.Warn("feed returned empty body", slog.String("url", feedURL))
		return nil
	}

	if looksLikeText(body) {
		logger.Warn("feed returned text where binary was expected",
			slog.String("url", feedURL),
			slog.String("content_type", resp.Header.Get("Content-Type")))
		return nil
	}

	msg := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(body, msg); err != nil {
		logger.Warn("decoding feed failed", slog.String("url", feedURL), slog.Any("error", err))
		return nil
	}

	outcome = "ok"
	return msg
}

func (f *Fetcher) ttlFor(key string) time.Duration {
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "alert"):
		return f.ttls.Alerts
	case strings.Contains(lower, "lirr"), strings.Contains(lower, "mnr"):
		return f.ttls.Rail
	default:
		return f.ttls.Subway
	}
}

// cacheKey strips credentials from the URL's query string so keys are
// stable across rotated API keys.
func cacheKey(logicalName, feedURL string) string {
	sanitized := feedURL
	if u, err := url.Parse(feedURL); err == nil {
		u.RawQuery = ""
		sanitized = u.String()
	}
	return logicalName + ":" + sanitized
}

// looksLikeText reports whether a body is HTML or JSON rather than a
// binary protobuf; upstream error pages arrive with status 200.
func looksLikeText(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '<', '{', '[':
		return true
	}
	return false
}
