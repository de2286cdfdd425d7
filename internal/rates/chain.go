package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"
)

// Snapshot is a rate mapping together with its provenance.
type Snapshot struct {
	Rates     map[string]float64 `json:"rates"`
	Source    string             `json:"source"`
	Live      bool               `json:"live"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

func (s Snapshot) clone() Snapshot {
	s.Rates = maps.Clone(s.Rates)
	return s
}

// Chain tries rate sources in order and returns the first success.
type Chain struct {
	sources []Source
}

// NewChain creates a chain over sources, tried in the given order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Fetch returns the first source result. If every source fails, the
// failures are joined in order.
func (c *Chain) Fetch(ctx context.Context) (Snapshot, error) {
	var errs []error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		rates, err := src.Fetch(ctx)
		if err != nil {
			slog.Warn("rate source failed", "source", src.Name(), "error", err)
			errs = append(errs, err)
			continue
		}

		return Snapshot{
			Rates:     rates,
			Source:    src.Name(),
			Live:      src.Live(),
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	if len(errs) == 0 {
		return Snapshot{}, fmt.Errorf("no rate sources configured")
	}
	return Snapshot{}, errors.Join(errs...)
}
