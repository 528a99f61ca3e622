package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"platval/internal"
	"platval/internal/catalog"
	"platval/internal/config"
	"platval/internal/market"
	"platval/internal/storage"
)

type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	prices PriceSource
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, prices: market.NewClient(cfg)}
}

type RunResult struct {
	TraceID  string
	Report   internal.ReportTotals
	Results  []internal.LineResult
	Failures []internal.ParseFailure
	Counts   map[string]int
	Warning  string
}

// Run executes one donation valuation: extract, parse, resolve, price,
// aggregate, record. Parse and resolution failures never abort the run; an
// authentication rejection cancels the remaining lookups but the report is
// still produced with the affected items in its aborted section.
func (s *ProcessingService) Run(ctx context.Context, inputType, inputPath string) (RunResult, error) {
	entries, err := ExtractEntriesFromInput(inputType, inputPath)
	if err != nil {
		return RunResult{}, err
	}

	requests, failures := ParseEntries(entries)

	aliases, err := LoadAliases(s.cfg.AliasPath)
	if err != nil {
		return RunResult{}, err
	}

	syncSvc := catalog.NewSyncService(s.db, s.cfg)
	warning, err := syncSvc.EnsureFresh(ctx)
	if err != nil {
		return RunResult{}, err
	}
	index, err := syncSvc.LoadIndex()
	if err != nil {
		return RunResult{}, err
	}

	resolver := NewResolver(aliases, index)

	type resolution struct {
		item   internal.CanonicalItem
		reason internal.ResolveReason
		ok     bool
	}
	resolutions := make([]resolution, len(requests))
	fetchOrder := []string{}
	categoryByID := map[string]internal.Category{}
	for i, req := range requests {
		item, reason, ok := resolver.Resolve(req)
		resolutions[i] = resolution{item: item, reason: reason, ok: ok}
		if ok {
			if _, seen := categoryByID[item.ID]; !seen {
				fetchOrder = append(fetchOrder, item.ID)
				categoryByID[item.ID] = item.Category
			}
		}
	}

	cache := NewPriceCache(s.prices)
	authErr := s.fetchPrices(ctx, cache, fetchOrder, categoryByID)

	results := make([]internal.LineResult, 0, len(requests))
	for i, req := range requests {
		res := internal.LineResult{Request: req, Subtotal: decimal.Zero}
		r := resolutions[i]
		if !r.ok {
			res.Status = internal.LineUnresolved
			res.Reason = internal.ReasonNone
			res.Note = "no alias or catalog match"
			results = append(results, res)
			continue
		}

		item := r.item
		res.Item = &item
		res.Reason = r.reason

		quote, qerr, fetched := cache.Peek(item.ID)
		switch {
		case !fetched || errors.Is(qerr, context.Canceled) || errors.Is(qerr, market.ErrAuth):
			res.Status = internal.LineAborted
			res.Note = "price lookup aborted"
		case qerr != nil:
			res.Status = internal.LineUnresolved
			res.Note = fmt.Sprintf("price lookup failed: %v", qerr)
		default:
			res.Status = internal.LinePriced
			q := quote
			res.Quote = &q
			res.Subtotal = quote.Platinum.Mul(decimal.NewFromInt(int64(req.Quantity)))
		}
		results = append(results, res)
	}

	report := Aggregate(results)

	counts := map[string]int{
		"lines":         len(entries),
		"requests":      len(requests),
		"parseFailures": len(failures),
		"rows":          len(report.Rows),
		"unresolved":    len(report.Unresolved),
		"aborted":       len(report.Aborted),
	}

	traceID := uuid.NewString()
	runID, err := s.db.InsertRun(traceID, inputPath, counts, report.GrandTotal.String())
	if err == nil {
		for _, res := range results {
			_ = s.db.InsertLineResult(runID, res)
		}
	}

	result := RunResult{
		TraceID:  traceID,
		Report:   report,
		Results:  results,
		Failures: failures,
		Counts:   counts,
		Warning:  warning,
	}
	if authErr != nil {
		result.Warning = joinWarnings(warning, fmt.Sprintf("lookups aborted: %v", authErr))
	}
	return result, nil
}

// fetchPrices prices every unique canonical id with a bounded worker pool.
// The cache serializes per id, so duplicates across workers cost nothing.
// An auth rejection cancels the pool; whatever was already priced stands.
func (s *ProcessingService) fetchPrices(ctx context.Context, cache *PriceCache, ids []string, categories map[string]internal.Category) error {
	workers := s.cfg.PriceWorkers
	if workers < 1 {
		workers = 1
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once sync.Once
	var fatal error

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				_, err := cache.Get(fetchCtx, id, categories[id])
				if errors.Is(err, market.ErrAuth) {
					once.Do(func() {
						fatal = err
						cancel()
					})
				}
			}
		}()
	}

	for _, id := range ids {
		select {
		case jobs <- id:
		case <-fetchCtx.Done():
		}
		if fetchCtx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	return fatal
}

// PriceOne resolves and prices a single name, for spot checks from the CLI.
func (s *ProcessingService) PriceOne(ctx context.Context, name string) (internal.LineResult, error) {
	aliases, err := LoadAliases(s.cfg.AliasPath)
	if err != nil {
		return internal.LineResult{}, err
	}

	syncSvc := catalog.NewSyncService(s.db, s.cfg)
	if _, err := syncSvc.EnsureFresh(ctx); err != nil {
		return internal.LineResult{}, err
	}
	index, err := syncSvc.LoadIndex()
	if err != nil {
		return internal.LineResult{}, err
	}

	req := internal.ParsedRequest{LineNo: 1, Source: internal.SourceText, RawLine: name, Name: name, Quantity: 1}
	res := internal.LineResult{Request: req, Subtotal: decimal.Zero}

	item, reason, ok := NewResolver(aliases, index).Resolve(req)
	if !ok {
		res.Status = internal.LineUnresolved
		res.Reason = internal.ReasonNone
		res.Note = "no alias or catalog match"
		return res, nil
	}

	res.Item = &item
	res.Reason = reason
	price, err := s.prices.FetchPrice(ctx, item.ID, item.Category)
	if err != nil {
		if errors.Is(err, market.ErrAuth) {
			return internal.LineResult{}, err
		}
		res.Status = internal.LineUnresolved
		res.Note = fmt.Sprintf("price lookup failed: %v", err)
		return res, nil
	}

	res.Status = internal.LinePriced
	res.Quote = &internal.PriceQuote{ItemID: item.ID, Platinum: price}
	res.Subtotal = price
	return res, nil
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "; " + b
}
