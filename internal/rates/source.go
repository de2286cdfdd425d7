package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/remote"
)

var (
	// ErrFeedUnavailable indicates the feed could not be reached or returned an error status.
	ErrFeedUnavailable = errors.New("rate feed unavailable")
	// ErrFeedTooShort indicates a response too small to be a real rate board.
	ErrFeedTooShort = errors.New("rate feed response too short")
	// ErrFeedIncomplete indicates a parsed board without a USD quote.
	ErrFeedIncomplete = errors.New("rate feed missing USD")
	// ErrNoStoredRates indicates no fresh rates in the quote repository.
	ErrNoStoredRates = errors.New("no stored rates")
)

// SourceError is the typed failure of one rate source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("rate source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source produces a currency → rate mapping.
type Source interface {
	Name() string
	// Live reports whether results come from the market rather than a cache or constant table.
	Live() bool
	Fetch(ctx context.Context) (map[string]float64, error)
}

// DefaultMissingRate is assigned to catalog currencies absent from both a
// live board and the fallback table.
const DefaultMissingRate = 30

var fallbackRates = map[string]float64{
	"USD": 32.20, "HKD": 4.10, "GBP": 40.80, "AUD": 21.10,
	"CAD": 23.40, "SGD": 24.00, "CHF": 36.30, "JPY": 0.210,
	"EUR": 34.80, "CNY": 4.43,
}

// FallbackRates returns a copy of the static fallback table.
func FallbackRates() map[string]float64 {
	return maps.Clone(fallbackRates)
}

// ProxyURL substitutes the query-escaped target into a template's {url}
// placeholder. A template of just "{url}" (or empty) yields the target itself.
func ProxyURL(template, target string) string {
	if template == "" || template == "{url}" {
		return target
	}
	return strings.ReplaceAll(template, "{url}", url.QueryEscape(target))
}

// FeedSource fetches the BOT CSV board, directly or through a proxy.
type FeedSource struct {
	client   *remote.Client
	url      string
	name     string
	envelope bool
	catalog  domain.Catalog
}

// NewFeedSource creates a feed source for feedURL reached through template.
// Proxies of the allorigins family wrap the payload in a JSON envelope.
func NewFeedSource(client *remote.Client, template, feedURL string, catalog domain.Catalog) *FeedSource {
	resolved := ProxyURL(template, feedURL)
	name := resolved
	if u, err := url.Parse(resolved); err == nil && u.Host != "" {
		name = u.Host
	}
	return &FeedSource{
		client:   client,
		url:      resolved,
		name:     name,
		envelope: strings.Contains(resolved, "allorigins"),
		catalog:  catalog,
	}
}

func (s *FeedSource) Name() string { return s.name }

func (s *FeedSource) Live() bool { return true }

// Fetch downloads and parses the board. Catalog currencies the board does
// not quote are filled from the fallback table, else DefaultMissingRate.
func (s *FeedSource) Fetch(ctx context.Context) (map[string]float64, error) {
	body, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, s.fail(fmt.Errorf("%w: %w", ErrFeedUnavailable, err))
	}

	content := string(body)
	if s.envelope {
		var env struct {
			Contents string `json:"contents"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, s.fail(fmt.Errorf("%w: decoding envelope: %w", ErrFeedUnavailable, err))
		}
		content = env.Contents
	}

	if len(content) < botMinFeedSize {
		return nil, s.fail(ErrFeedTooShort)
	}

	rates := ParseBOTCSV(content)
	if rates["USD"] == 0 {
		return nil, s.fail(ErrFeedIncomplete)
	}

	for _, code := range s.catalog.Codes() {
		if rates[code] != 0 {
			continue
		}
		rates[code] = lo.ValueOr(fallbackRates, code, DefaultMissingRate)
	}
	return rates, nil
}

func (s *FeedSource) fail(err error) error {
	return &SourceError{Source: s.name, Err: err}
}

// StaticSource returns the hardcoded fallback table.
type StaticSource struct{}

func (StaticSource) Name() string { return "static" }

func (StaticSource) Live() bool { return false }

func (StaticSource) Fetch(_ context.Context) (map[string]float64, error) {
	return FallbackRates(), nil
}

// StoredSource serves the last persisted live rates if they are fresh enough.
type StoredSource struct {
	repo   QuoteRepository
	maxAge time.Duration
	now    func() time.Time
}

// NewStoredSource creates a source over repo accepting quotes younger than maxAge.
func NewStoredSource(repo QuoteRepository, maxAge time.Duration) *StoredSource {
	return &StoredSource{repo: repo, maxAge: maxAge, now: time.Now}
}

func (s *StoredSource) Name() string { return "stored" }

func (s *StoredSource) Live() bool { return false }

func (s *StoredSource) Fetch(ctx context.Context) (map[string]float64, error) {
	quotes, err := s.repo.GetAllQuotes(ctx)
	if err != nil {
		return nil, &SourceError{Source: s.Name(), Err: fmt.Errorf("%w: %w", ErrNoStoredRates, err)}
	}

	cutoff := s.now().Add(-s.maxAge)
	fresh := lo.Filter(quotes, func(q Quote, _ int) bool {
		return q.UpdatedAt.After(cutoff)
	})
	if len(fresh) == 0 {
		return nil, &SourceError{Source: s.Name(), Err: ErrNoStoredRates}
	}

	return lo.SliceToMap(fresh, func(q Quote) (string, float64) {
		return q.Currency, q.Rate.InexactFloat64()
	}), nil
}
