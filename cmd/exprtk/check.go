package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/exprtk/pkg/dataset"
	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/stdlib"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [expression]",
		Short: "Parse an expression and report what it references",
		Long: "Parse an expression and list the columns and functions it references.\n" +
			"With --schema, also check the columns exist and infer the result type.",
		Args: cobra.MaximumNArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().StringArray("schema", nil, "Known column as name=type (repeatable)")
	return cmd
}

// splitPair splits "name=value" at the first '='.
func splitPair(flag, s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("--%s %q: expected name=value", flag, s)
	}
	return strings.TrimSpace(name), value, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	prog, err := expr.ParseExpression(source)
	if err != nil {
		return errors.New(describePosition(source, err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "columns:\t%s\n", strings.Join(expr.Columns(prog), ", "))
	fmt.Fprintf(out, "functions:\t%s\n", strings.Join(expr.Functions(prog), ", "))

	pairs, _ := cmd.Flags().GetStringArray("schema")
	if len(pairs) == 0 {
		return nil
	}
	names := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, typ, err := splitPair("schema", p)
		if err != nil {
			return err
		}
		names[name] = typ
	}
	schema, err := dataset.ParseSchema(names)
	if err != nil {
		return err
	}

	result := dataset.Validate([]dataset.Definition{{Name: "expression", Expression: source}}, schema, stdlib.NewRegistry(), expr.MaxExpressionLength)[0]
	if result.Error != nil {
		return errors.New(result.Error.Message)
	}
	typ := result.Type
	if typ == "" {
		typ = "unknown"
	}
	fmt.Fprintf(out, "type:\t%s\n", typ)
	return nil
}
