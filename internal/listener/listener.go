package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"platval/internal/config"
	"platval/internal/pipeline"
	"platval/internal/storage"
)

// Service polls a drop directory for donation list files and prices each new
// one. The processed set lives in the metadata table keyed by file name and
// mtime, so a re-dropped (edited) file is picked up again.
type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.WatchDir, 0o755); err != nil {
		return err
	}

	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("watch cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatchIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	entries, err := os.ReadDir(s.cfg.WatchDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		inputType := typeForFile(entry.Name())
		if inputType == "" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		key := "watch.processed." + entry.Name()
		stamp := info.ModTime().UTC().Format(time.RFC3339)
		if prev, err := s.db.GetMetadata(key); err == nil && prev != nil && *prev == stamp {
			continue
		}

		path := filepath.Join(s.cfg.WatchDir, entry.Name())
		if inputType == "text" {
			blob, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if detect := pipeline.DetectDonationList(string(blob)); !detect.IsList {
				fmt.Printf("watch skip file=%s score=%.2f\n", entry.Name(), detect.Score)
				_ = s.db.SetMetadata(key, stamp)
				continue
			}
		}

		proc := pipeline.NewProcessingService(s.db, s.cfg)
		res, err := proc.Run(ctx, inputType, path)
		if err != nil {
			fmt.Printf("watch process failed file=%s err=%v\n", entry.Name(), err)
			continue
		}
		if res.Warning != "" {
			fmt.Printf("watch warning file=%s: %s\n", entry.Name(), res.Warning)
		}

		if s.cfg.WatchAutoExport {
			base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			out := filepath.Join(s.cfg.OutputDir, "watch", fmt.Sprintf("%s_%s.xlsx", base, res.TraceID[:8]))
			if err := pipeline.ExportReportToXLSX(res.Report, out); err != nil {
				fmt.Printf("watch export failed file=%s err=%v\n", entry.Name(), err)
				continue
			}
			fmt.Printf("watch done file=%s rows=%d unresolved=%d total=%s output=%s\n",
				entry.Name(), len(res.Report.Rows), len(res.Report.Unresolved), res.Report.GrandTotal.String(), out)
		}

		_ = s.db.SetMetadata(key, stamp)
	}
	return nil
}

func typeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return "text"
	case ".html", ".htm":
		return "html"
	case ".xlsx":
		return "xlsx"
	case ".pdf":
		return "pdf"
	default:
		return ""
	}
}
