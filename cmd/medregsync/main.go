package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/config"
	"github.com/planadoc/medregsync/index"
	"github.com/planadoc/medregsync/labels"
	"github.com/planadoc/medregsync/models/registry"
	"github.com/planadoc/medregsync/reconcile"
	"github.com/planadoc/medregsync/search"
	"github.com/planadoc/medregsync/store"
)

func main() {
	startTime := time.Now()
	_ = godotenv.Load()

	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stdout })).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	mode := "full"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	switch mode {
	case "full", "local", "recovery":
	default:
		log.Fatal().Str("mode", mode).Msg("Unknown mode, expected full, local or recovery")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare the database schema")
	}
	st := store.New(db, log)

	httpClient := search.NewHTTPClient(cfg.HTTPTimeout, cfg.HTTPRetryMax)

	if mode != "recovery" {
		if err := labels.NewDownloader(cfg.LabelsBaseURL, httpClient, st.Labels, log).DownloadAll(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to refresh labels")
		}

		var indexedAt time.Time
		if mode == "full" {
			log.Info().Str("url", cfg.IndexURL).Msg("Downloading bulk index")
			indexedAt, err = index.Download(ctx, httpClient, cfg.IndexURL, cfg.IndexFile)
		} else {
			log.Info().Str("file", cfg.IndexFile).Msg("Reusing local bulk index")
			indexedAt, err = index.Timestamp(cfg.IndexFile)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to obtain the bulk index")
		}

		if err := ingest(ctx, st, cfg.IndexFile, indexedAt, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to ingest the bulk index")
		}
	}

	driver := reconcile.NewDriver(reconcile.DriverParams{
		Doctors:         st.Doctors,
		Addresses:       st.Addresses,
		Specializations: st.Specializations,
		Fetcher:         reconcile.NewFetcher(search.NewClient(cfg.SearchBaseURL, httpClient, log), st.Doctors, log, nil),
		Reconciler:      reconcile.NewReconciler(st.Doctors, st.Addresses, st.Specializations, log, nil),
		Log:             log,
		Progress: func(current, total int, gln string) {
			fmt.Printf("\r%d/%d (GLN %s)        ", current, total, gln)
		},
	})

	summary, err := driver.Run(ctx, mode == "recovery")
	fmt.Println()
	if err != nil {
		log.Fatal().Err(err).Msg("Enrichment pass aborted")
	}

	printSummary(ctx, st, summary, log)
	log.Info().Dur("duration", time.Since(startTime)).Msg("Sync finished")
}

// ingest opens the downloaded workbook and reconciles its rows against
// the doctors table.
func ingest(ctx context.Context, st *store.Store, path string, indexedAt time.Time, log zerolog.Logger) error {
	container, err := index.OpenContainer(path)
	if err != nil {
		return err
	}
	defer container.Close()

	ss, err := container.SharedStrings()
	if err != nil {
		return err
	}
	strings, err := index.ParseSharedStrings(ss)
	ss.Close()
	if err != nil {
		return err
	}

	ws, err := container.Worksheet()
	if err != nil {
		return err
	}
	defer ws.Close()

	ing := reconcile.NewIngester(st.Doctors, log, nil)
	_, err = ing.Run(ctx, index.NewSheet(ws, strings), indexedAt)
	return err
}

func printSummary(ctx context.Context, st *store.Store, summary reconcile.Summary, log zerolog.Logger) {
	fmt.Printf("Processed %d/%d doctors: %d enriched, %d empty, %d fetch failures, %d reconcile failures\n",
		summary.Processed, summary.Total,
		summary.Counts[reconcile.Success], summary.Counts[reconcile.EmptyRecord],
		summary.Counts[reconcile.FetchFailure], summary.Counts[reconcile.ReconcileFailure])
	fmt.Printf("Pruned %d addresses and %d specializations\n",
		summary.PrunedAddresses, summary.PrunedSpecializations)

	docCounts, err := st.Doctors.StatusCounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read doctor status counts")
		return
	}
	fmt.Println("doctors:")
	for _, status := range registry.DoctorStatuses {
		if n := docCounts[status]; n > 0 {
			fmt.Printf("  %-14s %d\n", status, n)
		}
	}

	for _, table := range []struct {
		name   string
		counts func(context.Context) (map[registry.EntryStatus]int, error)
	}{
		{"addresses", st.Addresses.StatusCounts},
		{"specializations", st.Specializations.StatusCounts},
	} {
		entryCounts, err := table.counts(ctx)
		if err != nil {
			log.Warn().Err(err).Str("table", table.name).Msg("Failed to read status counts")
			continue
		}
		fmt.Printf("%s:\n", table.name)
		for _, status := range registry.EntryStatuses {
			if n := entryCounts[status]; n > 0 {
				fmt.Printf("  %-14s %d\n", status, n)
			}
		}
	}
}
