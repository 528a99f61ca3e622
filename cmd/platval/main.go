package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"platval/internal"
	"platval/internal/catalog"
	"platval/internal/config"
	"platval/internal/listener"
	"platval/internal/pipeline"
	"platval/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.Sync(context.Background())
		must(err)
		fmt.Printf("catalog sync complete: %d items\n", count)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "text", "text|html|xlsx|pdf")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" || strings.TrimSpace(*output) == "" {
			must(fmt.Errorf("--input and --output are required"))
		}

		proc := pipeline.NewProcessingService(db, cfg)
		res, err := proc.Run(context.Background(), *inType, *input)
		must(err)

		for _, f := range res.Failures {
			fmt.Printf("skipped line %d (%s): %s\n", f.LineNo, f.Reason, f.Text)
		}
		if res.Warning != "" {
			fmt.Printf("warning: %s\n", res.Warning)
		}

		must(pipeline.ExportReportToXLSX(res.Report, *output))
		fmt.Printf("run done trace=%s rows=%d unresolved=%d aborted=%d total=%s output=%s\n",
			res.TraceID, len(res.Report.Rows), len(res.Report.Unresolved), len(res.Report.Aborted),
			res.Report.GrandTotal.String(), *output)
	case "price":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		item := fs.String("item", "", "item name as written")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*item) == "" {
			must(fmt.Errorf("--item is required"))
		}

		proc := pipeline.NewProcessingService(db, cfg)
		res, err := proc.PriceOne(context.Background(), *item)
		must(err)
		if res.Status != internal.LinePriced {
			fmt.Printf("unresolved: %s (%s)\n", *item, res.Note)
			return
		}
		fmt.Printf("%s (%s) = %s platinum [%s]\n", res.Item.DisplayName, res.Item.ID, res.Quote.Platinum.String(), res.Reason)
	case "watch":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: platval <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync")
	fmt.Println("  run --input=donations.txt [--type=text|html|xlsx|pdf] --output=./out/report.xlsx")
	fmt.Println("  price --item=\"amar's hatred\"")
	fmt.Println("  watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
