package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"urnik/internal/api"
	"urnik/internal/config"
	"urnik/internal/export"
	appLog "urnik/internal/log"
	"urnik/internal/prefs"
	"urnik/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool

	// Only used with -once.
	mode      string
	week      string
	class     string
	professor string
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(runHashPassword(os.Args[2:]))
	}

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", flags.configPath, "err", err)
	}

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		// Keep state next to the working copy while developing.
		conf.CacheDir = "./cache"
		conf.PrefsPath = "./prefs.yaml"
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("urnik starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"api_url", conf.APIURL,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"cache_dir", conf.CacheDir,
		"prefs_path", conf.PrefsPath,
		"basic_auth", conf.BasicAuth != nil,
		"once", flags.once,
		"debug", flags.debug,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := api.NewClient(conf.APIURL, conf.CacheDir)
	store := prefs.NewFileStore(conf.PrefsPath)
	printer := export.NewChromePrinter(export.PDFOptions{
		Width:     conf.PDF.Width,
		Height:    conf.PDF.Height,
		Timeout:   time.Duration(conf.PDF.TimeoutSeconds) * time.Second,
		Landscape: conf.PDF.Landscape,
	})
	srv := web.NewServer(conf, client, store, printer, flags.debug)

	if flags.once {
		os.Exit(runOnce(ctx, srv, flags))
	}

	if err := srv.RefreshOptions(ctx); err != nil {
		appLog.Error("initial options fetch failed", err)
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
		loc = time.Local
	}
	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		refreshCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := srv.RefreshOptions(refreshCtx); err != nil {
			appLog.Error("scheduled options refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	if err := srv.StartServer(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("urnik exiting")
}

// runOnce fetches and lays out one timetable, prints it as JSON and exits.
func runOnce(ctx context.Context, srv *web.Server, flags flagConfig) int {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	snap, err := srv.Snapshot(ctx, web.Query{
		Mode:        prefs.Mode(flags.mode),
		Week:        flags.week,
		ClassID:     flags.class,
		ProfessorID: flags.professor,
	})
	if err != nil {
		appLog.Error("once: timetable failed", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		appLog.Error("once: encode failed", err)
		return 1
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/urnik/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch and lay out one timetable, print it as JSON and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging; cache and prefs in the working directory")
	flag.StringVar(&cfg.mode, "mode", "", "With -once: class or professor (default from prefs)")
	flag.StringVar(&cfg.week, "week", "", "With -once: week value (default: current week)")
	flag.StringVar(&cfg.class, "class", "", "With -once: class id")
	flag.StringVar(&cfg.professor, "professor", "", "With -once: professor id")

	flag.Parse()

	return cfg
}
