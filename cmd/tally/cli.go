package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tally/internal/config"
	"github.com/hpungsan/tally/internal/doc"
	"github.com/hpungsan/tally/internal/errors"
	"github.com/hpungsan/tally/internal/ops"
	"github.com/hpungsan/tally/internal/repl"
	"github.com/hpungsan/tally/internal/web"
)

// maxDocBytes caps markdown files read by the doc command.
const maxDocBytes = 10 << 20

// newCLIApp creates the CLI application with all commands.
// baseDir is the tally home directory holding exports/.
func newCLIApp(db *sql.DB, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "tally",
		Usage:   "String calculator with evaluation history",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(db, cfg),
			fetchCmd(db),
			listCmd(db),
			latestCmd(db),
			purgeCmd(db),
			exportCmd(db, cfg, baseDir),
			docCmd(db, cfg),
			serveCmd(db, cfg),
			replCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Sum a delimited list of numbers (argument or stdin)",
		UsageText: "tally add [options] <input>\n" +
			"tally add [options] -- <input>   (input starting with '-', e.g. -1,2)\n" +
			"echo '1,2' | tally add [options]",
		ArgsUsage: "[--] [input]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record this evaluation"},
			&cli.BoolFlag{Name: "escape", Aliases: []string{"e"}, Usage: `Expand \n, \t and \\ in the argument`},
		},
		Action: func(c *cli.Context) error {
			var input string
			switch {
			case c.NArg() > 0:
				input = c.Args().First()
				if c.Bool("escape") {
					input = repl.Unescape(input)
				}
			case stdinHasData():
				text, err := readStdin(stdinLimit(cfg))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input = text
			default:
				return outputError(errors.NewInvalidRequest("input must be an argument or piped via stdin"))
			}

			output, err := ops.Evaluate(c.Context, db, cfg, ops.EvaluateInput{
				Input:     input,
				Source:    "cli",
				NoHistory: c.Bool("no-history"),
			})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Error != nil {
				return cli.Exit("", 2)
			}
			return nil
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a recorded evaluation by ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, db, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded evaluations, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by outcome: ok|error"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, ops.ListInput{
				Status: c.String("status"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Show the most recent recorded evaluation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by outcome: ok|error"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(c.Context, db, ops.LatestInput{Status: c.String("status")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete recorded evaluations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge evaluations older than N days (e.g., 7d)"},
			&cli.BoolFlag{Name: "failed-only", Usage: "Only purge evaluations that ended in an error"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{FailedOnly: c.Bool("failed-only")}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export evaluation history to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.tally/exports/tally-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, filepath.Join(baseDir, "exports"), ops.ExportInput{
				Path: c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// docCmd creates the doc command.
func docCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "doc",
		Usage:     "Evaluate ```tally blocks in a markdown file and check their # => expectations",
		ArgsUsage: "<file.md>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record block evaluations"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return outputError(errors.NewInvalidRequest("markdown file path is required"))
			}
			source, err := readFileLimit(path, maxDocBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			database := db
			if c.Bool("no-history") {
				database = nil
			}
			output, err := doc.Check(c.Context, database, cfg, source)
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d checked blocks failed", output.Failed, output.Passed+output.Failed), 1)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8321, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}
			srv := web.NewServer(db, cfg, Version).HTTPServer(c.String("bind"), port)
			return web.Run(srv)
		},
	}
}

// replCmd creates the repl command.
func replCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start an interactive calculator session",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-history", Usage: "Do not record evaluations"},
		},
		Action: func(c *cli.Context) error {
			database := db
			if c.Bool("no-history") {
				database = nil
			}
			return repl.Run(c.Context, database, cfg)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if tErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// stdinLimit bounds stdin reads. A rune is at most 4 bytes, so this never
// truncates input that max_input_chars would accept.
func stdinLimit(cfg *config.Config) int64 {
	if cfg == nil || cfg.MaxInputChars <= 0 {
		return int64(config.DefaultConfig().MaxInputChars) * 4
	}
	return int64(cfg.MaxInputChars) * 4
}

// readStdin reads stdin up to limit bytes and drops one trailing line ending,
// so `echo 1,2 | tally add` is not read as a trailing separator.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	s := string(data)
	if trimmed, ok := strings.CutSuffix(s, "\n"); ok {
		s = strings.TrimSuffix(trimmed, "\r")
	}
	return s, nil
}

// readFileLimit reads a file, refusing files larger than limit bytes.
func readFileLimit(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, limit)
	}
	return data, nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
