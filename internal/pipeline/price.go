package pipeline

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"platval/internal"
)

// PriceSource is the external price resolver. Retries and backoff live
// behind it; the cache only guarantees at-most-one fetch per item id.
type PriceSource interface {
	FetchPrice(ctx context.Context, itemID string, category internal.Category) (decimal.Decimal, error)
}

// PriceCache memoizes prices for exactly one run. Keyed by canonical id
// only. Concurrent Gets for the same id share one in-flight fetch; the
// losers wait on the entry's ready channel.
type PriceCache struct {
	src     PriceSource
	mu      sync.Mutex
	entries map[string]*priceEntry
}

type priceEntry struct {
	ready chan struct{}
	quote internal.PriceQuote
	err   error
}

func NewPriceCache(src PriceSource) *PriceCache {
	return &PriceCache{src: src, entries: map[string]*priceEntry{}}
}

func (c *PriceCache) Get(ctx context.Context, itemID string, category internal.Category) (internal.PriceQuote, error) {
	c.mu.Lock()
	entry, ok := c.entries[itemID]
	if ok {
		c.mu.Unlock()
		select {
		case <-entry.ready:
			return entry.quote, entry.err
		case <-ctx.Done():
			return internal.PriceQuote{}, ctx.Err()
		}
	}

	entry = &priceEntry{ready: make(chan struct{})}
	c.entries[itemID] = entry
	c.mu.Unlock()

	price, err := c.src.FetchPrice(ctx, itemID, category)
	if err != nil {
		entry.err = err
	} else {
		entry.quote = internal.PriceQuote{ItemID: itemID, Platinum: price}
	}
	close(entry.ready)
	return entry.quote, entry.err
}

// Peek returns the cached outcome for an id without triggering a fetch.
// Used after a run's lookups finish (or are aborted) to assemble results.
func (c *PriceCache) Peek(itemID string) (internal.PriceQuote, error, bool) {
	c.mu.Lock()
	entry, ok := c.entries[itemID]
	c.mu.Unlock()
	if !ok {
		return internal.PriceQuote{}, nil, false
	}
	select {
	case <-entry.ready:
		return entry.quote, entry.err, true
	default:
		return internal.PriceQuote{}, nil, false
	}
}
