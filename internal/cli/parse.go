package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loreline/topicsearch/internal/ast"
	"github.com/loreline/topicsearch/internal/parser"
)

// ParseResult holds the parsed query tree.
type ParseResult struct {
	Query string   `json:"query"`
	AST   ast.Node `json:"ast"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a query and print its tree",
		Long: `Parse a raw query string and print the resulting tree.

Parsing is total: any input produces a tree, with malformed fragments
kept as literal text. No database is needed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runParse(opts *RootOptions, query string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	node := parser.Parse(query)
	result := &ParseResult{Query: query, AST: node}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	return printAST(formatter, node)
}

// printAST renders a tree as indented JSON, the text-format view shared
// by parse and check.
func printAST(formatter *OutputFormatter, node ast.Node) error {
	if node == nil {
		fmt.Fprintln(formatter.Writer, "(empty query)")
		return nil
	}
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "rendering tree", err)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}
