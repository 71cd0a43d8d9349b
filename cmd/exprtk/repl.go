package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/exprtk/pkg/dataset"
	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/stdlib"
	"github.com/lemonberrylabs/exprtk/pkg/tokenize"
	"github.com/lemonberrylabs/exprtk/pkg/types"
)

const (
	historyFile = ".exprtk_history"
	promptMain  = "expr> "
)

const replHelp = `Commands:
  :row {"col": value, ...}   Set the row that column references read from
  :tokens <expression>       Print the tokens of an expression
  :functions                 List the built-in functions
  :help                      Show this help
  :quit                      Exit
Anything else is evaluated as an expression.
`

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate expressions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.OutOrStdout())
		},
	}
}

// session holds the REPL's current row and functions. It resolves column
// references for the evaluator.
type session struct {
	row   *types.OrderedMap
	funcs *stdlib.Registry
}

func newSession() *session {
	return &session{row: types.NewOrderedMap(), funcs: stdlib.NewRegistry()}
}

func (s *session) Column(name string) (types.Value, error) {
	if v, ok := s.row.Get(name); ok {
		return v, nil
	}
	return types.Null, types.NewKeyError(fmt.Sprintf("unknown column '%s'", name))
}

func (s *session) CallFunction(name string, args []types.Value) (types.Value, error) {
	return s.funcs.CallFunction(name, args)
}

// handle runs one line of input and returns what to print. quit is true
// when the session should end.
func (s *session) handle(line string) (out string, quit bool, err error) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return "", false, nil
	case trimmed == ":quit" || trimmed == ":q":
		return "", true, nil
	case trimmed == ":help":
		return replHelp, false, nil
	case trimmed == ":functions":
		return strings.Join(s.funcs.Names(), " ") + "\n", false, nil
	case strings.HasPrefix(trimmed, ":row"):
		table, err := dataset.FromJSON([]byte("[" + strings.TrimSpace(strings.TrimPrefix(trimmed, ":row")) + "]"))
		if err != nil {
			return "", false, err
		}
		if len(table.Rows) != 1 {
			return "", false, errors.New(":row expects one JSON object")
		}
		s.row = table.Rows[0]
		return "", false, nil
	case strings.HasPrefix(trimmed, ":tokens"):
		source := strings.TrimSpace(strings.TrimPrefix(trimmed, ":tokens"))
		var b strings.Builder
		for tok, err := range tokenize.New(source).All() {
			if err != nil {
				return b.String(), false, errors.New(describePosition(source, err))
			}
			fmt.Fprintf(&b, "%d\t%s\t%q\n", tok.Span.Start, tok.Kind, tok.Text)
		}
		return b.String(), false, nil
	case strings.HasPrefix(trimmed, ":"):
		return "", false, fmt.Errorf("unknown command %s (try :help)", strings.Fields(trimmed)[0])
	}

	prog, err := expr.ParseExpression(line)
	if err != nil {
		return "", false, errors.New(describePosition(line, err))
	}
	v, err := expr.Evaluate(prog, s)
	if err != nil {
		return "", false, err
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return "", false, err
	}
	return string(b) + "\n", false, nil
}

func runRepl(w io.Writer) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := newSession()
	fmt.Fprintf(w, "exprtk %s\nType :help for commands, Ctrl+D to exit.\n", version)
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}

		out, quit, err := s.handle(line)
		if err != nil {
			fmt.Fprintln(w, red(err.Error()))
			continue
		}
		if quit {
			return nil
		}
		fmt.Fprint(w, green(out))
	}
}
