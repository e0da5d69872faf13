// Package geocode resolves street addresses to coordinates through the
// Nominatim API, with a persistent cache so every address hits the network
// at most once across all runs.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kidzout/harvester/internal/harvester"
	"github.com/kidzout/harvester/internal/telemetry"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

// DefaultUserAgent identifies the harvester to Nominatim, which requires a
// contactable agent string for API access.
const DefaultUserAgent = "kidzout-harvester/1.0 (https://kidzout.de; kontakt@kidzout.de)"

// Config controls the geocoder endpoint and pacing.
type Config struct {
	BaseURL   string
	UserAgent string
	// RequestsPerSecond must stay at or below 1 for the public endpoint.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Geocoder serializes all lookups behind one mutex. Nominatim's usage policy
// allows one request per second from a single agent, so there is nothing to
// gain from concurrent resolution.
type Geocoder struct {
	mu      sync.Mutex
	cfg     Config
	store   harvester.GeocodeStore
	cache   map[string][]float64
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// New loads the cache from the store. A load failure starts with an empty
// cache rather than aborting.
func New(store harvester.GeocodeStore, cfg Config, log *zap.Logger) *Geocoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	cache, err := store.Load()
	if err != nil {
		log.Warn("geocode cache unavailable, starting fresh", zap.Error(err))
		cache = map[string][]float64{}
	}
	if cache == nil {
		cache = map[string][]float64{}
	}

	return &Geocoder{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:     log,
	}
}

// Lookup resolves an address to coordinates. Cached results, including
// tombstoned unresolvable addresses, never touch the network. Transient
// errors return no coordinates without poisoning the cache.
func (g *Geocoder) Lookup(ctx context.Context, address, city string) (float64, float64, bool) {
	if strings.TrimSpace(address) == "" {
		return 0, 0, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Trimmed and lowercased so spacing or casing variants of one address
	// share a single cache entry.
	query := strings.TrimSpace(address) + ", " + strings.TrimSpace(city) + ", Germany"
	key := strings.ToLower(query)

	if coords, cached := g.cache[key]; cached {
		if len(coords) == 2 {
			telemetry.ObserveGeocode("cache_hit")
			return coords[0], coords[1], true
		}
		telemetry.ObserveGeocode("cache_tombstone")
		return 0, 0, false
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, 0, false
	}

	lat, lon, found, err := g.resolve(ctx, query)
	if err != nil {
		telemetry.ObserveGeocode("error")
		g.log.Warn("geocode request failed", zap.String("query", query), zap.Error(err))
		return 0, 0, false
	}
	if !found {
		telemetry.ObserveGeocode("unresolved")
		g.cache[key] = nil
		g.persist()
		return 0, 0, false
	}

	telemetry.ObserveGeocode("resolved")
	g.cache[key] = []float64{lat, lon}
	g.persist()
	return lat, lon, true
}

func (g *Geocoder) resolve(ctx context.Context, query string) (float64, float64, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, fmt.Errorf("geocode %q: status %d", query, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, 0, false, fmt.Errorf("read geocode response: %w", err)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, false, nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false, fmt.Errorf("malformed coordinates for %q", query)
	}
	return lat, lon, true, nil
}

// persist writes through to the store after every resolution so a crashed
// run keeps what it already paid network requests for.
func (g *Geocoder) persist() {
	if err := g.store.Save(g.cache); err != nil {
		g.log.Warn("failed to persist geocode cache", zap.Error(err))
	}
}
