package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/exprtk/pkg/dataset"
	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/stdlib"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compute columns over a JSON array of rows",
		Long: "Compute one column per --column over the rows in --rows and print the\n" +
			"resulting rows as JSON. Use --rows - to read rows from stdin.",
		Args: cobra.NoArgs,
		RunE: runEval,
	}
	cmd.Flags().String("rows", "-", "JSON file holding an array of row objects, or - for stdin")
	cmd.Flags().StringArray("column", nil, "Computed column as name=expression (repeatable)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("rows")
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading rows: %w", err)
	}

	table, err := dataset.FromJSON(data)
	if err != nil {
		return err
	}

	pairs, _ := cmd.Flags().GetStringArray("column")
	defs := make([]dataset.Definition, 0, len(pairs))
	for _, p := range pairs {
		name, source, err := splitPair("column", p)
		if err != nil {
			return err
		}
		defs = append(defs, dataset.Definition{Name: name, Expression: source})
	}

	out, err := dataset.Compute(table, defs, stdlib.NewRegistry(), expr.MaxExpressionLength)
	if err != nil {
		var cerr *dataset.ComputeError
		if errors.As(err, &cerr) && cerr.Row < 0 {
			for _, d := range defs {
				if d.Name == cerr.Column {
					return fmt.Errorf("column %q: %s", d.Name, describePosition(d.Expression, cerr.Err))
				}
			}
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
