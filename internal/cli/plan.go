package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loreline/topicsearch/internal/search"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	ArchiveOptions
}

// PlanResult holds the compiled query.
type PlanResult struct {
	Query     string   `json:"query"`
	Principal string   `json:"principal,omitempty"`
	SQL       string   `json:"sql"`
	Params    []any    `json:"params"`
	Warnings  []string `json:"warnings"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <query>",
		Short: "Compile a query and print its SQL",
		Long: `Compile a query against an archive and print the parameterized SQL
it would run, without executing it.

Symbolic values ("me", team names, rank keywords) resolve against the
database, so --db is required and --as selects the principal.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "archive database path (required)")
	cmd.Flags().StringVar(&opts.As, "as", "", "run as the person with this email (default: anonymous)")

	return cmd
}

func runPlan(opts *PlanOptions, query string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	st, principal, err := openArchive(ctx, formatter, &opts.ArchiveOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := search.New(st, nil)
	planned, err := engine.Plan(ctx, query, principal)
	if err != nil {
		_ = formatter.Error(ErrCodeQuery, "compiling query", err.Error())
		return WrapExitError(ExitCommandError, "compiling query", err)
	}

	result := &PlanResult{
		Query:    query,
		SQL:      planned.SQL,
		Params:   planned.Params,
		Warnings: planned.Warnings,
	}
	if principal != nil {
		result.Principal = principal.Name
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	printWarnings(formatter.Writer, planned.Warnings)
	fmt.Fprintln(formatter.Writer, planned.SQL)
	if len(planned.Params) > 0 {
		fmt.Fprintf(formatter.Writer, "params: %v\n", planned.Params)
	}
	return nil
}
