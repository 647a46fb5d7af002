package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/forgeline/internal/config"
	"github.com/mattjoyce/forgeline/internal/dispatch"
	"github.com/mattjoyce/forgeline/internal/event"
	"github.com/mattjoyce/forgeline/internal/events"
	"github.com/mattjoyce/forgeline/internal/lock"
	"github.com/mattjoyce/forgeline/internal/log"
	"github.com/mattjoyce/forgeline/internal/manifest"
	"github.com/mattjoyce/forgeline/internal/report"
	"github.com/mattjoyce/forgeline/internal/service"
	"github.com/mattjoyce/forgeline/internal/storage"
	"github.com/mattjoyce/forgeline/internal/tui/watch"
	"github.com/mattjoyce/forgeline/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "watch":
		os.Exit(runWatch(args))
	case "manifest":
		os.Exit(runManifestNoun(args))
	case "version":
		fmt.Printf("forgeline version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`forgeline - event-triggered packaging dispatch engine

Usage:
  forgeline <command> [flags]

Commands:
  serve              Start the webhook service in foreground
  watch              Attach the live dispatch TUI to a running service
  manifest check     Parse and validate a packaging manifest
  manifest lock      Record the manifest content hash in .manifest.lock
  manifest resolve   Resolve a synthetic event against a manifest (dry run)

General:
  version            Show version information
  help               Show this help message

Use 'forgeline <command> -h' for command-specific flags.
`)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "service config file")
	withTUI := fs.Bool("tui", false, "attach the live dispatch watch TUI")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("serve")

	pidLock, err := lock.Acquire(cfg.Service.PidFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()

	if cfg.Manifest.VerifyLock {
		if err := manifest.VerifyLock(cfg.Manifest.Path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	store, err := manifest.NewStore(cfg.Manifest.Path, log.WithComponent("manifest"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(ctx, cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer db.Close()

	hub := events.NewHub(256)
	dispatcher := dispatch.New(dispatch.DryRunBackends(), cfg.DispatchLimits(), hub)
	svc := service.New(store, dispatcher, report.NewStore(db))
	defer svc.Shutdown()

	webhookCfg, err := webhook.FromGlobalConfig(cfg.Webhooks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	server := webhook.New(webhookCfg, svc, hub, log.WithComponent("webhook"))

	if cfg.Manifest.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Error("manifest watch stopped", "error", err)
			}
		}()
	}

	if *withTUI {
		go func() {
			if err := watch.Run(hub); err != nil {
				logger.Error("watch TUI failed", "error", err)
			}
			stop()
		}()
	}

	logger.Info("forgeline starting", "version", version, "manifest", cfg.Manifest.Path)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server failed", "error", err)
		return 1
	}
	logger.Info("forgeline stopped")
	return 0
}

// runWatch attaches the dispatch watch TUI to a running service over its
// status feed endpoint.
func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	url := fs.String("url", "http://127.0.0.1:8787", "base URL of the running forgeline service")
	_ = fs.Parse(args)

	log.Setup("warn")

	if err := watch.RunRemote(*url); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runManifestNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: forgeline manifest <check|lock|resolve> [flags]")
		return 1
	}

	switch args[0] {
	case "check":
		return runManifestCheck(args[1:])
	case "lock":
		return runManifestLock(args[1:])
	case "resolve":
		return runManifestResolve(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown manifest action: %s\n", args[0])
		return 1
	}
}

func runManifestCheck(args []string) int {
	fs := flag.NewFlagSet("manifest check", flag.ExitOnError)
	path := fs.String("manifest", "./forgeline.yaml", "manifest file")
	_ = fs.Parse(args)

	m, err := manifest.LoadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	if err := manifest.VerifyLock(*path); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	fmt.Printf("OK: %d jobs\n", len(m.Jobs))
	return 0
}

func runManifestLock(args []string) int {
	fs := flag.NewFlagSet("manifest lock", flag.ExitOnError)
	path := fs.String("manifest", "./forgeline.yaml", "manifest file")
	_ = fs.Parse(args)

	if _, err := manifest.LoadFile(*path); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	rec, err := manifest.WriteLock(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s (%s)\n", rec.Manifest, rec.Hash[:12])
	return 0
}

// runManifestResolve resolves a synthetic event against a manifest and
// dispatches it to dry-run backends: a full pipeline rehearsal with no
// external side effects.
func runManifestResolve(args []string) int {
	fs := flag.NewFlagSet("manifest resolve", flag.ExitOnError)
	path := fs.String("manifest", "./forgeline.yaml", "manifest file")
	trigger := fs.String("trigger", "pull_request", "trigger kind: pull_request, commit, release")
	branch := fs.String("branch", "", "event branch")
	owner := fs.String("owner", "example", "source repo owner")
	repo := fs.String("repo", "example", "source repo name")
	_ = fs.Parse(args)

	log.Setup("warn")

	store, err := manifest.NewStore(*path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}

	ev := event.Canonical{
		ID:        "resolve-dry-run",
		Trigger:   manifest.TriggerKind(*trigger),
		Forge:     "github",
		Owner:     *owner,
		Repo:      *repo,
		Branch:    *branch,
		IsRelease: manifest.TriggerKind(*trigger) == manifest.TriggerRelease,
	}

	dispatcher := dispatch.New(dispatch.DryRunBackends(), nil, nil)
	svc := service.New(store, dispatcher, nil)

	batchID, results, err := svc.Process(context.Background(), ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	if len(results) == 0 {
		fmt.Println("no jobs matched")
		return 0
	}

	fmt.Printf("batch %s: %d units\n", batchID, len(results))
	for _, res := range results {
		fmt.Printf("  %-18s %-28s %-9s %s\n", res.Unit.Kind, res.Unit.Target, res.Status, res.BackendRef)
	}
	return 0
}
