package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/starstore/internal/engine"
)

func newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive Starlark session against the store",
		Long: `Start an interactive Starlark session with the "store" global bound
to an open session. Mutations require a write transaction:

  starstore> store.begin()
  starstore> p = store.create("Person", {"name": "ada"})
  starstore> p.friends.push({"name": "grace"})
  starstore> store.commit()`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil {
				return fmt.Errorf("failed to create store directory: %w", err)
			}

			eng, err := engine.New(engine.Config{
				StorePath:  cfg.StorePath,
				SchemaPath: cfg.SchemaPath,
				Logger:     logger,
				Print: func(msg string) {
					fmt.Fprintln(cmd.OutOrStdout(), msg)
				},
			})
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			sess, err := eng.NewSession()
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			return runREPL(cmd, sess)
		},
	}
}

func runREPL(cmd *cobra.Command, sess *engine.Session) error {
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryFile), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "starstore> ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "starstore REPL (store: %s)\n", cfg.StorePath)
	fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(out)

	for n := 0; ; n++ {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if line == ".quit" || line == ".exit" {
				break
			}
			handleDotCommand(out, line)
			continue
		}

		result, err := sess.Eval(fmt.Sprintf("<repl:%d>", n), line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if result != nil && result != starlark.None {
			fmt.Fprintln(out, result.String())
		}
	}
	return nil
}

func handleDotCommand(out io.Writer, line string) {
	switch line {
	case ".help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  .help   show this help")
		fmt.Fprintln(out, "  .quit   exit the REPL")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Everything else is evaluated as Starlark. The store is")
		fmt.Fprintln(out, "available as the 'store' global.")
	default:
		fmt.Fprintf(out, "unknown command %s (try .help)\n", line)
	}
}
