package main

import (
	"database/sql"
	"fmt"
	"os"
	"slices"

	"github.com/joho/godotenv"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/db"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/mcp"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

var (
	commands  = []string{"classify", "build-index", "merge", "history", "run", "serve", "help"}
	infoFlags = []string{"--help", "-h", "--version", "-v"}
)

// firstArg returns os.Args[1], or "" without arguments.
func firstArg() string {
	if len(os.Args) < 2 {
		return ""
	}
	return os.Args[1]
}

// isCLIMode reports whether the arguments name a command or an info flag.
// Anything else falls through to the MCP server.
func isCLIMode() bool {
	arg := firstArg()
	return slices.Contains(commands, arg) || slices.Contains(infoFlags, arg)
}

// needsStore is false for help and version output, which run without
// touching the journal.
func needsStore() bool {
	arg := firstArg()
	return arg != "help" && !slices.Contains(infoFlags, arg)
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
  warc-metadata-sidecar

  Classify WARC payloads into metadata sidecars and merge
  the results into CDXJ indexes.

  Usage: sidecar <command> [options]
         sidecar --help

  MCP server mode: sidecar serve, or pipe stdin.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// openStore opens the run journal and loads config from the base directory.
func openStore() (*sql.DB, *config.Config) {
	baseDir, err := config.BaseDir()
	if err != nil {
		fatal("could not determine base directory: %v", err)
	}
	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	cfg, err := config.Load(baseDir)
	if err != nil {
		database.Close()
		fatal("failed to load config: %v", err)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown disabled_tools: %v\n", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown disabled_types: %v\n", unknown)
	}
	return database, cfg
}

func main() {
	// A .env file is optional.
	_ = godotenv.Load()
	ops.Version = Version

	if firstArg() == "" && isTerminal() {
		printBanner()
		return
	}

	if isCLIMode() && !needsStore() {
		if err := newCLIApp(nil, nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	if !isCLIMode() && firstArg() != "" && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\nRun 'sidecar --help' for usage.\n", firstArg())
		os.Exit(1)
	}

	database, cfg := openStore()
	defer database.Close()

	var err error
	if isCLIMode() {
		err = newCLIApp(database, cfg).Run(os.Args)
	} else {
		err = mcp.Run(database, cfg, Version)
	}
	if err != nil {
		database.Close()
		fatal("%v", err)
	}
}
