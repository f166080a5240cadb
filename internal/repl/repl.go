// Package repl runs an interactive calculator session.
package repl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"

	"github.com/hpungsan/tally/internal/config"
	"github.com/hpungsan/tally/internal/ops"
)

// DefaultPrompt is shown before each line.
const DefaultPrompt = "tally> "

const helpText = `Enter a list of numbers to sum, e.g. 1,2\n3 or //;\n1;2
Escapes: \n newline, \t tab, \\ backslash
Commands: :help, :last, :quit`

type options struct {
	stdin       io.ReadCloser
	stdout      io.Writer
	historyFile string
	prompt      string
}

// Option configures Run.
type Option func(*options)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(o *options) {
		o.stdin = stdin
	}
}

// WithStdout allows overriding the output of the REPL.
func WithStdout(stdout io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
	}
}

// WithHistoryFile sets the readline history file. Empty disables history.
func WithHistoryFile(path string) Option {
	return func(o *options) {
		o.historyFile = path
	}
}

// WithPrompt overrides DefaultPrompt.
func WithPrompt(prompt string) Option {
	return func(o *options) {
		o.prompt = prompt
	}
}

// Run reads lines until EOF or :quit, evaluating each one.
// database may be nil, in which case nothing is recorded.
func Run(ctx context.Context, database *sql.DB, cfg *config.Config, opts ...Option) error {
	o := &options{
		stdout:      os.Stdout,
		historyFile: historyPath(),
		prompt:      DefaultPrompt,
	}
	for _, opt := range opts {
		opt(o)
	}

	ensureHistoryFilePermissions(o.historyFile)

	rlCfg := &readline.Config{
		Stdout:            o.stdout,
		Stderr:            o.stdout,
		Prompt:            o.prompt,
		HistoryFile:       o.historyFile,
		HistorySearchFold: true,
	}
	if o.stdin != nil {
		rlCfg.Stdin = o.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.ReadLine()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch cmd := strings.TrimSpace(line); cmd {
		case "":
			continue
		case ":quit", ":q", ":exit":
			return nil
		case ":help", ":h":
			fmt.Fprintln(o.stdout, helpText)
			continue
		case ":last":
			fmt.Fprintln(o.stdout, last(ctx, database))
			continue
		}

		fmt.Fprintln(o.stdout, eval(ctx, database, cfg, Unescape(line)))
	}
}

// eval formats the outcome of one line.
func eval(ctx context.Context, database *sql.DB, cfg *config.Config, input string) string {
	out, err := ops.Evaluate(ctx, database, cfg, ops.EvaluateInput{Input: input, Source: "repl"})
	if err != nil {
		return "error: " + err.Error()
	}
	if out.Error != nil {
		return fmt.Sprintf("[%s] %s", out.Error.Code, out.Error.Message)
	}
	return fmt.Sprintf("%d", *out.Sum)
}

// last formats the most recent recorded evaluation.
func last(ctx context.Context, database *sql.DB) string {
	if database == nil {
		return "history is not available"
	}
	e, err := ops.Latest(ctx, database, ops.LatestInput{})
	if err != nil {
		return "error: " + err.Error()
	}
	switch {
	case e.Sum != nil:
		return fmt.Sprintf("%s %q = %d", e.ID, e.Input, *e.Sum)
	case e.ErrorCode != nil:
		return fmt.Sprintf("%s %q [%s]", e.ID, e.Input, *e.ErrorCode)
	}
	return e.ID
}

// Unescape expands \n, \t and \\ so multi-line inputs can be typed on one line.
// Other backslash sequences are kept as written.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
			continue
		}
		i++
	}
	return b.String()
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, config.DirName, "repl_history")
}

// ensureHistoryFilePermissions creates the history file with mode 0600,
// or tightens an existing one.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return
	}
	_ = f.Close()
	_ = os.Chmod(path, 0600)
}
