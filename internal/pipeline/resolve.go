package pipeline

import (
	"platval/internal"
	"platval/internal/util"
)

// CatalogView is the read side of the catalog the resolver tests candidate
// ids against.
type CatalogView interface {
	Exists(id string) bool
	Get(id string) (internal.CatalogItem, bool)
}

// Resolver maps raw item names to canonical catalog ids. Alias rules go
// first (the arbitrary exceptions), then the normalization pipeline (the
// systematic spelling differences). Anything else stays unresolved for
// manual review; a wrong price is worse than a flagged line, so there is no
// fuzzy guessing here.
type Resolver struct {
	aliases *AliasTable
	catalog CatalogView
}

func NewResolver(aliases *AliasTable, catalog CatalogView) *Resolver {
	return &Resolver{aliases: aliases, catalog: catalog}
}

func (r *Resolver) Resolve(req internal.ParsedRequest) (internal.CanonicalItem, internal.ResolveReason, bool) {
	if rule, ok := r.aliases.Lookup(req.Name); ok {
		return r.enrich(internal.CanonicalItem{
			ID:       rule.CanonicalID,
			Category: pickCategory(rule.Category, req.Hint),
		}), internal.ReasonAlias, true
	}

	slug := util.Slugify(req.Name)
	if slug != "" && r.catalog.Exists(slug) {
		return r.enrich(internal.CanonicalItem{
			ID:       slug,
			Category: pickCategory(internal.CategoryUnknown, req.Hint),
		}), internal.ReasonNormalized, true
	}

	return internal.CanonicalItem{}, internal.ReasonNone, false
}

func (r *Resolver) enrich(item internal.CanonicalItem) internal.CanonicalItem {
	if cat, ok := r.catalog.Get(item.ID); ok {
		item.DisplayName = cat.ItemName
	}
	if item.DisplayName == "" {
		item.DisplayName = item.ID
	}
	return item
}

func pickCategory(ruleCategory, hint internal.Category) internal.Category {
	if ruleCategory != internal.CategoryUnknown {
		return ruleCategory
	}
	if hint != internal.CategoryUnknown {
		return hint
	}
	return internal.CategoryItem
}
