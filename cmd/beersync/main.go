package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"beersync/internal/catalog"
	"beersync/internal/commercial"
	"beersync/internal/config"
	"beersync/internal/pipeline"
	"beersync/internal/regulatory"
	"beersync/internal/sheets"
	"beersync/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := newLogger(cfg.LogLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync-commercial":
		svc, err := catalog.NewSyncService(db, cfg, log)
		must(err)
		count, err := svc.SyncCommercial(ctx)
		must(err)
		fmt.Printf("commercial sync complete: %d products\n", count)

	case "catalog:sync-regulatory":
		svc, err := catalog.NewSyncService(db, cfg, log)
		must(err)
		count, err := svc.SyncRegulatory(ctx)
		must(err)
		fmt.Printf("regulatory sync complete: %d goods\n", count)

	case "links:match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		rejects := fs.String("rejects", "", "write rejected rows to this xlsx path")
		pushRejects := fs.Bool("push-rejects", false, "write rejected rows back to the sheet")
		_ = fs.Parse(os.Args[2:])

		sheetClient, err := sheets.NewClient(cfg)
		must(err)
		rows, err := sheetClient.CorrespondenceRows()
		must(err)

		result, err := pipeline.NewLinkService(db, log).Run(rows)
		must(err)
		fmt.Printf("match done rows=%d links_added=%d rejected=%d\n", len(rows), result.Added, len(result.Rejections))

		if *rejects != "" && len(result.Rejections) > 0 {
			must(pipeline.ExportRejectionsXLSX(result.Rejections, *rejects))
			fmt.Printf("rejections written to %s\n", *rejects)
		}
		if *pushRejects {
			must(sheetClient.WriteRejections(result.Rejections))
		}

	case "journal:create":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		date := fs.String("date", time.Now().Format("2006-01-02"), "journal date YYYY-MM-DD")
		push := fs.Bool("push", false, "submit the journal to the regulatory service")
		_ = fs.Parse(os.Args[2:])
		must(validateDate(*date))

		regClient, err := regulatory.NewClient(cfg)
		must(err)
		svc := pipeline.NewJournalService(db, commercial.NewClient(cfg), regClient, log)
		entries, err := svc.Create(ctx, *date)
		must(err)
		fmt.Printf("journal created date=%s entries=%d\n", *date, len(entries))

		if *push {
			must(svc.Push(ctx, *date))
			fmt.Printf("journal pushed date=%s\n", *date)
		}

	case "journal:recreate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		date := fs.String("date", "", "journal date YYYY-MM-DD")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*date) == "" {
			must(fmt.Errorf("--date is required"))
		}
		must(validateDate(*date))

		regClient, err := regulatory.NewClient(cfg)
		must(err)
		svc := pipeline.NewJournalService(db, commercial.NewClient(cfg), regClient, log)
		entries, err := svc.Recreate(*date)
		must(err)
		fmt.Printf("journal recreated date=%s entries=%d\n", *date, len(entries))

	case "export:journal":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		date := fs.String("date", "", "journal date YYYY-MM-DD")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*date) == "" {
			must(fmt.Errorf("--date is required"))
		}
		must(validateDate(*date))
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, "journal-"+*date+".xlsx")
		}

		entries, err := db.ListJournal(*date)
		must(err)
		if len(entries) == 0 {
			must(fmt.Errorf("no journal entries for %s", *date))
		}
		must(pipeline.ExportJournalXLSX(*date, entries, *out))
		fmt.Printf("exported %d rows to %s\n", len(entries), *out)

	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		date := fs.String("date", time.Now().Format("2006-01-02"), "journal date YYYY-MM-DD")
		push := fs.Bool("push", false, "submit the journal to the regulatory service")
		_ = fs.Parse(os.Args[2:])
		must(validateDate(*date))

		syncSvc, err := catalog.NewSyncService(db, cfg, log)
		must(err)
		_, err = syncSvc.SyncCommercial(ctx)
		must(err)
		_, err = syncSvc.SyncRegulatory(ctx)
		must(err)

		sheetClient, err := sheets.NewClient(cfg)
		must(err)
		rows, err := sheetClient.CorrespondenceRows()
		must(err)
		result, err := pipeline.NewLinkService(db, log).Run(rows)
		must(err)

		regClient, err := regulatory.NewClient(cfg)
		must(err)
		journalSvc := pipeline.NewJournalService(db, commercial.NewClient(cfg), regClient, log)
		entries, err := journalSvc.Create(ctx, *date)
		must(err)
		if *push {
			must(journalSvc.Push(ctx, *date))
		}
		fmt.Printf("run done date=%s links_added=%d rejected=%d entries=%d\n", *date, result.Added, len(result.Rejections), len(entries))

	default:
		usage()
		os.Exit(1)
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}
	return log
}

func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("bad date %q: expected YYYY-MM-DD", date)
	}
	return nil
}

func usage() {
	fmt.Println("usage: beersync <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync-commercial")
	fmt.Println("  catalog:sync-regulatory")
	fmt.Println("  links:match [--rejects=./out/rejects.xlsx] [--push-rejects]")
	fmt.Println("  journal:create --date=YYYY-MM-DD [--push]")
	fmt.Println("  journal:recreate --date=YYYY-MM-DD")
	fmt.Println("  export:journal --date=YYYY-MM-DD [--out=./out/journal.xlsx]")
	fmt.Println("  run --date=YYYY-MM-DD [--push]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
