package internal

import "github.com/shopspring/decimal"

type InputSource string

const (
	SourceText      InputSource = "text"
	SourceHTMLTable InputSource = "html_table"
	SourceXLSX      InputSource = "xlsx"
	SourcePDF       InputSource = "pdf"
)

type Category string

const (
	CategoryUnknown Category = ""
	CategoryItem    Category = "item"
	CategoryMod     Category = "mod"
	CategoryArcane  Category = "arcane"
)

// RawLineEntry is one input line as extracted, trimmed but otherwise unmodified.
type RawLineEntry struct {
	LineNo int
	Source InputSource
	Text   string
}

// ParsedRequest is the line parser's output: a quantity and the raw item name.
// Quantity defaults to 1 when the line carries none.
type ParsedRequest struct {
	LineNo   int
	Source   InputSource
	RawLine  string
	Name     string
	Quantity int
	Hint     Category
}

// ParseFailure records a malformed line that was skipped; never fatal to a run.
type ParseFailure struct {
	LineNo int
	Text   string
	Reason string
}

// AliasRule maps one known non-standard spelling to a canonical catalog id.
// Rules are data, loaded once at startup; extending them never touches the
// normalization pipeline.
type AliasRule struct {
	Pattern     string   `yaml:"pattern"`
	CanonicalID string   `yaml:"canonical"`
	Category    Category `yaml:"category"`
}

// CanonicalItem is the resolved identity used for pricing and grouping. Two
// requests resolving to the same ID are the same economic entity regardless
// of original spelling.
type CanonicalItem struct {
	ID          string
	DisplayName string
	Category    Category
}

type ResolveReason string

const (
	ReasonAlias      ResolveReason = "ALIAS"
	ReasonNormalized ResolveReason = "NORMALIZED"
	ReasonNone       ResolveReason = "NONE"
)

type LineStatus string

const (
	LinePriced     LineStatus = "PRICED"
	LineUnresolved LineStatus = "UNRESOLVED"
	LineAborted    LineStatus = "ABORTED"
)

// PriceQuote is fetched at most once per item id per run and owned by the
// run's price cache. Never persisted for reuse.
type PriceQuote struct {
	ItemID   string
	Platinum decimal.Decimal
}

type LineResult struct {
	Request  ParsedRequest
	Status   LineStatus
	Reason   ResolveReason
	Item     *CanonicalItem
	Quote    *PriceQuote
	Subtotal decimal.Decimal
	Note     string
}

type ReportRow struct {
	Item      CanonicalItem
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type UnresolvedEntry struct {
	LineNo  int
	RawLine string
	Name    string
	Note    string
}

type AbortedEntry struct {
	ItemID   string
	Quantity int
}

// ReportTotals is the aggregated report: one row per canonical item in
// first-occurrence order, a grand total over priced rows only, and the
// unresolved/aborted leftovers.
type ReportTotals struct {
	Rows       []ReportRow
	GrandTotal decimal.Decimal
	Unresolved []UnresolvedEntry
	Aborted    []AbortedEntry
}

// CatalogItem is one tradable from the market catalog mirror.
type CatalogItem struct {
	URLName  string
	ItemName string
	MarketID string
}
