package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/lemonberrylabs/exprtk/pkg/api/grpc"
	"github.com/lemonberrylabs/exprtk/pkg/expr"
	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/tokenize"
)

func newTokenizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenize [expression]",
		Short: "Print the tokens of an expression, one per line",
		Long: "Print the tokens of an expression as tab-separated offset, kind and text.\n" +
			"The expression is read from stdin when no argument is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: runTokenize,
	}
	cmd.Flags().Bool("skip-trivia", false, "Omit whitespace and comment tokens")
	cmd.Flags().String("grpc-addr", "", "Tokenize on a running server at this gRPC address instead of locally")
	return cmd
}

// readSource returns the single argument, or all of stdin.
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func runTokenize(cmd *cobra.Command, args []string) error {
	source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	skip, _ := cmd.Flags().GetBool("skip-trivia")
	out := cmd.OutOrStdout()

	if addr, _ := cmd.Flags().GetString("grpc-addr"); addr != "" {
		return tokenizeRemote(cmd.Context(), addr, source, skip, out)
	}

	var opts []tokenize.Option
	if skip {
		opts = append(opts, tokenize.WithoutTrivia())
	}
	for tok, err := range tokenize.New(source, opts...).All() {
		if err != nil {
			return errors.New(describePosition(source, err))
		}
		fmt.Fprintf(out, "%d\t%s\t%q\n", tok.Span.Start, tok.Kind, tok.Text)
	}
	return nil
}

func tokenizeRemote(ctx context.Context, addr, source string, skip bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	req, err := structpb.NewStruct(map[string]interface{}{
		"source":         source,
		"emitWhitespace": !skip,
		"emitComments":   !skip,
	})
	if err != nil {
		return err
	}
	resp, err := grpcapi.NewClient(conn).Tokenize(ctx, req)
	if err != nil {
		return fmt.Errorf("tokenize: %s", status.Convert(err).Message())
	}

	for _, v := range resp.GetFields()["tokens"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		fmt.Fprintf(out, "%d\t%s\t%q\n",
			int(f["start"].GetNumberValue()), f["kind"].GetStringValue(), f["text"].GetStringValue())
	}
	return nil
}

// describePosition renders a lex or syntax error with its location marked
// under the offending line.
func describePosition(source string, err error) string {
	pos, ok := expr.ErrorPosition(err)
	if !ok {
		return err.Error()
	}
	line, ok := token.NewSource(source).Line(pos.Line)
	if !ok {
		return err.Error()
	}
	return fmt.Sprintf("%v\n  %s\n  %s^", err, line, strings.Repeat(" ", pos.Column-1))
}
