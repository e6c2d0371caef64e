package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/mcp"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "sidecar",
		Usage:   "WARC metadata sidecar classifier and CDXJ merger",
		Version: Version,
		Commands: []*cli.Command{
			classifyCmd(db, cfg),
			buildIndexCmd(db),
			mergeCmd(db, cfg),
			historyCmd(db),
			runCmd(db),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func classifyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Write a metadata sidecar for each archive",
		ArgsUsage: "OUTPUT_DIR ARCHIVE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "operator", Usage: "warcinfo operator (default: config or $SIDECAR_OPERATOR)"},
			&cli.StringFlag{Name: "publisher", Usage: "warcinfo publisher (default: config or $SIDECAR_PUBLISHER)"},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "Archives processed in parallel"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: sidecar classify OUTPUT_DIR ARCHIVE..."))
			}
			args := c.Args().Slice()

			output, err := ops.Classify(c.Context, db, cfg, ops.ClassifyInput{
				OutputDir: args[0],
				Archives:  args[1:],
				Operator:  c.String("operator"),
				Publisher: c.String("publisher"),
				Jobs:      c.Int("jobs"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

func buildIndexCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "build-index",
		Usage:     "Build a CDXJ index of a sidecar's metadata records",
		ArgsUsage: "SIDECAR OUTPUT_DIR",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: sidecar build-index SIDECAR OUTPUT_DIR"))
			}

			output, err := ops.BuildIndex(c.Context, db, ops.BuildIndexInput{
				Sidecar:   c.Args().Get(0),
				OutputDir: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

func mergeCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge a sidecar CDXJ index into an original CDXJ index",
		ArgsUsage: "METADATA_CDXJ ORIGINAL_CDXJ OUTPUT_DIR",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return outputError(errors.NewInvalidRequest("usage: sidecar merge METADATA_CDXJ ORIGINAL_CDXJ OUTPUT_DIR"))
			}

			output, err := ops.Merge(c.Context, db, cfg, ops.MergeInput{
				MetadataIndex: c.Args().Get(0),
				OriginalIndex: c.Args().Get(1),
				OutputDir:     c.Args().Get(2),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List journaled runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "operation", Aliases: []string{"o"}, Usage: "Filter: classify|build-index|merge"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(db, ops.HistoryInput{
				Operation: c.String("operation"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

func runCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Show one journaled run",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			output, err := ops.GetRun(db, ops.GetRunInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the operations as MCP tools over stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(db, cfg, Version); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.SidecarError
	if errors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
