package catalog

import "platval/internal"

// Index is the in-memory view of the catalog mirror. Membership tests against
// it are pure, so name resolution stays deterministic for the whole run.
type Index struct {
	byURLName map[string]internal.CatalogItem
}

func BuildIndex(items []internal.CatalogItem) *Index {
	idx := &Index{byURLName: make(map[string]internal.CatalogItem, len(items))}
	for _, item := range items {
		idx.byURLName[item.URLName] = item
	}
	return idx
}

func (i *Index) Exists(id string) bool {
	_, ok := i.byURLName[id]
	return ok
}

func (i *Index) Get(id string) (internal.CatalogItem, bool) {
	item, ok := i.byURLName[id]
	return item, ok
}

func (i *Index) Len() int {
	return len(i.byURLName)
}
