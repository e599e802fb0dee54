// Package main is the entry point for the tutordb command line.
//
// tutordb keeps the local marketplace store of a data directory: it seeds it
// from a bootstrap fixture, runs catalog queries, shows wallet history,
// manages favorites and session tokens and exports snapshots. Configuration is
// read from CLI flags, a .env file and config.json, in that order of
// precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/tutordb/internal/config"
	"github.com/maruel/tutordb/internal/store"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tutordb: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by the subcommands.
type app struct {
	dataDir string
	fixture string
	cfg     *config.Config
	out     io.Writer
}

// storeDir is where the collections live, next to config.json.
func (a *app) storeDir() string {
	return filepath.Join(a.dataDir, "db")
}

func (a *app) open(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, a.storeDir())
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"seed", "Populate an empty store from the bootstrap fixture", cmdSeed},
	{"search", "Filter, sort and paginate the course catalog", cmdSearch},
	{"transactions", "Show a user's wallet history", cmdTransactions},
	{"favorite", "Toggle a course in a user's favorites", cmdFavorite},
	{"register", "Create a user account", cmdRegister},
	{"token", "Log in and print a session token, or verify one", cmdToken},
	{"apply", "Submit or decide a mentor application", cmdApply},
	{"export", "Write a SQLite snapshot of the store", cmdExport},
	{"watch", "Rerun a saved query whenever the store changes", cmdWatch},
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: tutordb [flags] <command> [command flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(out, "  %-13s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(out, "\nflags:\n")
	flag.PrintDefaults()
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	fixture := flag.String("fixture", "", "Bootstrap fixture URL or path; defaults to fixture_url in config.json")
	flag.Usage = usage
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}
	if flag.NArg() == 0 {
		usage()
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case time.Time:
				skip = t.IsZero()
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	// config.Load applies .env on top of config.json.
	cfg, err := config.Load(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Explicit flags win over .env.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["log-level"] && cfg.LogLevel != "" {
		*logLevel = cfg.LogLevel
	}
	if !set["fixture"] {
		*fixture = cfg.FixtureURL
	}

	switch strings.ToLower(*logLevel) {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	a := &app{dataDir: *dataDir, fixture: *fixture, cfg: cfg, out: os.Stdout}
	name := flag.Arg(0)
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, a, flag.Args()[1:])
		}
	}
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	sort.Strings(names)
	return fmt.Errorf("unknown command %q; expected one of %s", name, strings.Join(names, ", "))
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("tutordb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	fmt.Printf("  Schema:     %d\n", store.SchemaVersion)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
