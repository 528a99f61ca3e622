package catalog

import (
	"context"
	"fmt"
	"time"

	"platval/internal/config"
	"platval/internal/market"
	"platval/internal/storage"
)

const lastSyncKey = "catalog.last_sync"

type SyncService struct {
	db     *storage.DB
	client *market.Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: market.NewClient(cfg), cfg: cfg}
}

// Sync pulls the full tradables list and refreshes the local mirror.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	items, err := s.client.GetItemsAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertItems(items); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata(lastSyncKey, time.Now().UTC().Format(time.RFC3339))
	return len(items), nil
}

// EnsureFresh syncs when the mirror is empty or older than the configured
// max age. An empty mirror that cannot be synced is fatal: without a catalog
// no name can be resolved. A stale mirror that cannot be refreshed is kept,
// with the failure reported to the caller as a warning string.
func (s *SyncService) EnsureFresh(ctx context.Context) (string, error) {
	count, err := s.db.CountItems()
	if err != nil {
		return "", err
	}

	if count == 0 {
		if _, err := s.Sync(ctx); err != nil {
			return "", fmt.Errorf("catalog unavailable and no local mirror: %w", err)
		}
		return "", nil
	}

	last, err := s.db.GetMetadata(lastSyncKey)
	if err != nil {
		return "", err
	}
	if last != nil {
		if parsed, err := time.Parse(time.RFC3339, *last); err == nil {
			if time.Since(parsed) < time.Duration(s.cfg.CatalogMaxAgeHrs)*time.Hour {
				return "", nil
			}
		}
	}

	if _, err := s.Sync(ctx); err != nil {
		return fmt.Sprintf("catalog refresh failed, using mirror from %s: %v", deref(last), err), nil
	}
	return "", nil
}

// LoadIndex builds the resolution index from the mirror.
func (s *SyncService) LoadIndex() (*Index, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, err
	}
	return BuildIndex(items), nil
}

func deref(v *string) string {
	if v == nil {
		return "never"
	}
	return *v
}
