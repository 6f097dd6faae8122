package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/zapwave/zapwave/internal/config"
	"github.com/zapwave/zapwave/internal/scheduler"
	"github.com/zapwave/zapwave/internal/store"
	"github.com/zapwave/zapwave/pkg/catalog"
	"github.com/zapwave/zapwave/pkg/ingest"
	"github.com/zapwave/zapwave/pkg/metrics"
	"github.com/zapwave/zapwave/pkg/notify"
	"github.com/zapwave/zapwave/pkg/ranking"
	"github.com/zapwave/zapwave/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildEngine(cfg *config.Config, db store.Store, m *metrics.Metrics) *ranking.Engine {
	scorer := ranking.NewScorer(cfg.Chart.SatsWeight, cfg.Chart.ZapWeight, cfg.Chart.RecencyWeight)
	return ranking.NewEngine(db, scorer, cfg.Chart.MaxPerArtist, cfg.Chart.Size, cfg.Chart.ExcludeIDs, m)
}

func buildSources(cfg *config.Config) []ingest.Source {
	filter := ingest.NewFilter(
		cfg.Sources.Moderation.BlockedArtists,
		cfg.Sources.Moderation.BlockedIDs,
		cfg.Sources.Moderation.MutedKeywords,
	)

	var sources []ingest.Source
	for _, r := range cfg.Sources.Relays {
		sources = append(sources, ingest.NewRelay(r.Name, r.URL, cfg.Sources.ParseWindow(), filter))
	}
	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]ingest.PodcastFeed, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = ingest.PodcastFeed{Name: f.Name, URL: f.URL, ArtistID: f.ArtistID}
		}
		sources = append(sources, ingest.NewFeed(feeds, filter))
	}

	return sources
}

func buildNotifyManager(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret))
	}

	return notify.NewManager(notifiers)
}

func runIngest(filterSources []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	allSources := buildSources(cfg)

	// Filter to requested sources only.
	var sources []ingest.Source
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		for _, s := range allSources {
			if wanted[strings.ToLower(s.Name())] {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	} else {
		sources = allSources
	}

	ctx := context.Background()
	total := 0

	for _, src := range sources {
		fmt.Fprintf(os.Stderr, "ingesting from %s...\n", src.Name())
		batch, err := src.Fetch(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}

		if err := db.ApplyBatch(ctx, batch); err != nil {
			fmt.Fprintf(os.Stderr, "  store error: %v\n", err)
			continue
		}

		fmt.Fprintf(os.Stderr, "  ingested %d records\n", batch.Len())
		total += batch.Len()
	}

	fmt.Fprintf(os.Stderr, "\ntotal: %d records from %d sources\n", total, len(sources))
	return nil
}

func runChart(jsonOutput bool, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db, nil)
	if _, err := engine.Rebuild(context.Background()); err != nil {
		return fmt.Errorf("rebuild chart: %w", err)
	}

	entries, err := db.ListChart(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("list chart: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("chart is empty (try ingesting data first: zapwave ingest)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCORE\tZAPS\tSATS\tTITLE\tARTIST")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%.2f\t%d\t%d\t%s\t%s\n",
			e.Position, e.Score, e.Track.ZapCount, e.Track.TotalSats,
			e.Track.Title, e.Track.ArtistID)
	}
	return w.Flush()
}

func runReleases(jsonOutput, all bool, artist string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	releases, err := db.ListReleases(context.Background(), store.ReleaseListOpts{
		WithTracks: true,
		Limit:      500,
	})
	if err != nil {
		return fmt.Errorf("list releases: %w", err)
	}
	releases = catalog.SortReleasesByDate(releases)

	var f catalog.Filter
	if all {
		f = catalog.AllFilter()
		f.Limit = cfg.Releases.AllLimit
	} else {
		f = catalog.RecentFilter()
		f.Limit = cfg.Releases.RecentLimit
		f.Latest = catalog.LatestRelease(releases)
	}
	f.ArtistID = artist
	out := catalog.SelectReleases(releases, f)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out) == 0 {
		fmt.Println("no releases found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTRACKS\tTITLE\tARTIST")
	for _, r := range out {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			r.EffectiveTime().Format(time.DateOnly), len(r.Tracks), r.Title, r.ArtistID)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port != 0 {
		cfg.Server.Port = port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	m := metrics.New()
	engine := buildEngine(cfg, db, m)
	sources := buildSources(cfg)

	srv := server.New(db, engine, sources, m, cfg)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port != 0 {
		cfg.Server.Port = port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	m := metrics.New()
	engine := buildEngine(cfg, db, m)
	sources := buildSources(cfg)
	notifyMgr := buildNotifyManager(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, sources, engine, notifyMgr, m,
		cfg.Schedule.ParseIngestInterval(),
		cfg.Schedule.ParseChartInterval(),
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv := server.New(db, engine, sources, m, cfg)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
