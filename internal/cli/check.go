package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/loreline/topicsearch/internal/ast"
	"github.com/loreline/topicsearch/internal/dates"
	"github.com/loreline/topicsearch/internal/parser"
	"github.com/loreline/topicsearch/internal/validate"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Strict bool
}

// CheckResult holds the validated tree and any warnings.
type CheckResult struct {
	Query    string   `json:"query"`
	AST      ast.Node `json:"ast"`
	Warnings []string `json:"warnings"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <query>",
		Short: "Validate a query and report warnings",
		Long: `Parse and validate a query, printing the corrected tree and the
warnings validation produced.

Validation never rejects a query: invalid parts are dropped or demoted
to literal text, each with a warning. No database is needed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit nonzero when warnings are produced")

	return cmd
}

func runCheck(opts *CheckOptions, query string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	parsed := parser.Parse(query)
	validated, warnings := validate.New(dates.New(nil)).Validate(parsed)
	result := &CheckResult{Query: query, AST: validated, Warnings: warnings}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printWarnings(formatter.Writer, warnings)
		if err := printAST(formatter, validated); err != nil {
			return err
		}
	}

	if opts.Strict && len(warnings) > 0 {
		return NewExitError(ExitFailure, "query produced warnings")
	}
	return nil
}
