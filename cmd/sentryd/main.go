// sentryd - behavioral anomaly detection daemon
//
//	sentryd init             Write a default config file
//	sentryd fit              Train the detectors and exit
//	sentryd score            Score a single sample from the command line
//	sentryd daemon           Run the daemon with the control socket
//	sentryd status           Show configuration and model status
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
	"sentryd/internal/config"
	"sentryd/internal/engine"
	"sentryd/internal/health"
	"sentryd/internal/ipc"
	"sentryd/internal/logging"
	"sentryd/internal/metrics"
	"sentryd/internal/security"
	"sentryd/internal/store"
	"sentryd/internal/watcher"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit()
	case "fit":
		cmdFit()
	case "score":
		cmdScore()
	case "daemon":
		cmdDaemon()
	case "status":
		cmdStatus()
	case "version":
		fmt.Println("sentryd", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`sentryd - behavioral anomaly detection daemon

USAGE:
    sentryd <command> [options]

COMMANDS:
    init        Write a default config file
    fit         Train the detectors on a synthetic corpus and exit
    score       Score one sample: sentryd score -typing 4.5 -mouse 320
    daemon      Run the daemon with the control socket
    status      Show configuration and model status
    version     Print the version
    help        Show this help message

The daemon scores two-channel behavioral samples (typing speed in
keystrokes/sec, mouse speed in pixels/sec) with an isolation forest and
a one-class boundary detector, classifies them against a threat pattern
library, and tracks a security posture score.

Configuration is read from ` + config.ConfigPath() + `
(override with -config). SENTRYD_* environment variables override
individual settings.`)
}

func loadConfig(fs *flag.FlagSet, args []string) *config.Config {
	configPath := fs.String("config", config.ConfigPath(), "config file path")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	return cfg
}

func setupLogger(cfg *config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fatal("%v", err)
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		fatal("%v", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = format
	logCfg.Output = cfg.Logging.Output
	if cfg.Logging.FilePath != "" {
		logCfg.FilePath = cfg.Logging.FilePath
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		fatal("setup logging: %v", err)
	}
	logging.SetDefault(logger)
	return logger
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "config file path")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.Parse(os.Args[2:])

	if _, err := os.Stat(*configPath); err == nil && !*force {
		fatal("config already exists at %s (use -force to overwrite)", *configPath)
	}

	if err := config.Save(config.DefaultConfig(), *configPath); err != nil {
		fatal("write config: %v", err)
	}
	fmt.Println("Wrote default config to", *configPath)
}

// buildEngine assembles an engine from config, without fitting it.
func buildEngine(cfg *config.Config, logger *logging.Logger, journal *store.Journal) *engine.Engine {
	opts := engine.DefaultOptions()
	opts.Forest.Trees = cfg.Detector.Trees
	opts.Forest.Contamination = cfg.Detector.Contamination
	opts.Forest.Subsample = cfg.Detector.Subsample
	opts.Forest.Seed = cfg.Detector.Seed
	opts.Boundary.Nu = cfg.Detector.Nu
	opts.Boundary.Gamma = cfg.Detector.Gamma
	opts.Capacity = cfg.History.Capacity
	opts.Logger = logger
	opts.Metrics = metrics.NewEngineMetrics(metrics.Default())
	if journal != nil {
		opts.Journal = journal
	}

	clsOpts := []classifier.Option{
		classifier.WithCategorizer(behavior.Categorizer{
			Typing: cfg.Thresholds.Typing,
			Mouse:  cfg.Thresholds.Mouse,
		}),
	}
	if cfg.Patterns.Path != "" {
		patterns, err := classifier.LoadPatterns(cfg.Patterns.Path)
		if err != nil {
			fatal("%v", err)
		}
		clsOpts = append(clsOpts, classifier.WithPatterns(patterns))
	}
	opts.Classifier = classifier.New(clsOpts...)

	return engine.New(opts)
}

// openJournal opens the verdict journal with a key derived from the
// master key file.
func openJournal(cfg *config.Config) (*store.Journal, error) {
	master, err := security.LoadOrCreateKey(cfg.Storage.KeyPath)
	if err != nil {
		return nil, err
	}
	defer security.Wipe(master)

	hmacKey, err := security.DeriveKeyWithLabel(master, "journal-hmac", security.RecommendedKeySize)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Storage.Path, hmacKey)
}

func cmdFit() {
	cfg := loadConfig(flag.NewFlagSet("fit", flag.ExitOnError), os.Args[2:])
	logger := setupLogger(cfg)
	defer logger.Close()

	eng := buildEngine(cfg, logger, nil)
	corpus := behavior.GenerateCorpus(cfg.Corpus.NormalCount, cfg.Corpus.SuspiciousCount, cfg.Corpus.Seed)
	if err := eng.Fit(corpus); err != nil {
		fatal("fit: %v", err)
	}
	fmt.Printf("Fitted on %d samples (%d normal, %d suspicious)\n",
		corpus.Size(), len(corpus.Normal), len(corpus.Suspicious))
}

func cmdScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	typing := fs.Float64("typing", 0, "typing speed in keystrokes/sec")
	mouse := fs.Float64("mouse", 0, "mouse speed in pixels/sec")
	cfg := loadConfig(fs, os.Args[2:])
	logger := setupLogger(cfg)
	defer logger.Close()

	if *typing < 0 || *mouse < 0 {
		fatal("speeds must not be negative")
	}

	eng := buildEngine(cfg, logger, nil)
	corpus := behavior.GenerateCorpus(cfg.Corpus.NormalCount, cfg.Corpus.SuspiciousCount, cfg.Corpus.Seed)
	if err := eng.Fit(corpus); err != nil {
		fatal("fit: %v", err)
	}

	verdict, err := eng.Score(behavior.FeatureSample{TypingSpeed: *typing, MouseSpeed: *mouse})
	if err != nil {
		fatal("score: %v", err)
	}
	printVerdict(verdict)
}

func printVerdict(v classifier.ThreatVerdict) {
	fmt.Printf("Threat Level: %s (%s)\n", v.Severity, v.Pattern)
	fmt.Printf("Typing:       %.2f k/s (%s)\n", v.Sample.TypingSpeed, v.TypingCategory.Describe())
	fmt.Printf("Mouse:        %.2f px/s (%s)\n", v.Sample.MouseSpeed, v.MouseCategory.Describe())
	fmt.Printf("Consistency:  %s\n", v.Consistency)
	fmt.Printf("Forest:       %s (%.1f%% confidence)\n", v.Forest.Label, v.Forest.Confidence)
	fmt.Printf("Boundary:     %s (%.1f%% confidence)\n", v.Boundary.Label, v.Boundary.Confidence)
	fmt.Printf("\n%s\n\nRecommended Actions:\n", v.Analysis)
	for i, action := range v.Actions {
		fmt.Printf("  %d. %s\n", i+1, action)
	}
}

func cmdDaemon() {
	cfg := loadConfig(flag.NewFlagSet("daemon", flag.ExitOnError), os.Args[2:])
	logger := setupLogger(cfg)
	defer logger.Close()

	var journal *store.Journal
	if cfg.Storage.Enabled {
		var err error
		journal, err = openJournal(cfg)
		if err != nil {
			fatal("open journal: %v", err)
		}
		defer journal.Close()
	}

	eng := buildEngine(cfg, logger, journal)
	corpus := behavior.GenerateCorpus(cfg.Corpus.NormalCount, cfg.Corpus.SuspiciousCount, cfg.Corpus.Seed)
	if err := eng.Fit(corpus); err != nil {
		fatal("initial fit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Addr, logger)
	}

	// Health checks run in the background and log degradation.
	checker := health.NewChecker()
	checker.RegisterFunc("models", true, health.ModelCheck(func() (time.Time, bool) {
		snap := eng.Snapshot()
		if snap == nil {
			return time.Time{}, false
		}
		return snap.FittedAt, true
	}, 0))
	if journal != nil {
		checker.RegisterFunc("journal", true, health.JournalCheck(journal.VerifyChain))
	}
	go runHealthLoop(ctx, checker, logger)

	if cfg.Patterns.Path != "" && cfg.Patterns.Watch {
		w, err := watcher.New(cfg.Patterns.Path, eng.SetPatterns, logger)
		if err != nil {
			fatal("watch patterns: %v", err)
		}
		defer w.Close()
		w.Start(ctx)
	}

	if !cfg.IPC.Enabled {
		fatal("daemon mode requires ipc.enabled")
	}

	handler := ipc.NewHandler(eng, cfg.Corpus, version, logger)
	srv := ipc.NewServer(cfg.IPC.SocketPath, handler, logger)
	srv.OnShutdown = cancel

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	logger.Info("sentryd started", "version", version, "socket", cfg.IPC.SocketPath)
	if err := srv.Start(ctx); err != nil {
		fatal("server: %v", err)
	}
}

// serveMetrics exposes the Prometheus scrape endpoint until the
// context is cancelled.
func serveMetrics(ctx context.Context, addr string, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default().HTTPHandler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics endpoint failed", "error", err)
	}
}

// runHealthLoop periodically evaluates registered checks.
func runHealthLoop(ctx context.Context, checker *health.Checker, logger *logging.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checker.Check(ctx)
			if status := checker.OverallStatus(); status != health.StatusHealthy {
				logger.Warn("health degraded", "status", string(status))
			}
		}
	}
}

func cmdStatus() {
	cfg := loadConfig(flag.NewFlagSet("status", flag.ExitOnError), os.Args[2:])

	fmt.Println("sentryd", version)
	fmt.Println()
	fmt.Println("Config:")
	fmt.Printf("  Detector:   %d trees, contamination %.2f, nu %.2f, seed %d\n",
		cfg.Detector.Trees, cfg.Detector.Contamination, cfg.Detector.Nu, cfg.Detector.Seed)
	fmt.Printf("  Corpus:     %d normal / %d suspicious samples\n",
		cfg.Corpus.NormalCount, cfg.Corpus.SuspiciousCount)
	fmt.Printf("  History:    %d entries\n", cfg.History.Capacity)
	fmt.Printf("  Journal:    enabled=%v path=%s\n", cfg.Storage.Enabled, cfg.Storage.Path)
	fmt.Printf("  Socket:     %s\n", cfg.IPC.SocketPath)
	if cfg.Patterns.Path != "" {
		fmt.Printf("  Patterns:   %s (watch=%v)\n", cfg.Patterns.Path, cfg.Patterns.Watch)
	} else {
		fmt.Println("  Patterns:   builtin library")
	}

	// Report the live daemon state when it is running.
	client, err := ipc.Dial(cfg.IPC.SocketPath)
	if err != nil {
		fmt.Println("\nDaemon: not running")
		return
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Println("\nDaemon: unreachable:", err)
		return
	}
	fmt.Println("\nDaemon: running")
	fmt.Printf("  Uptime:     %s\n", status.Uptime.Round(time.Second))
	fmt.Printf("  Fitted:     %v (corpus %d)\n", status.Fitted, status.CorpusSize)
	fmt.Printf("  Posture:    %d (%s)\n", status.Posture, status.Status)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sentryd: "+format+"\n", args...)
	os.Exit(1)
}
