package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loreline/topicsearch/internal/search"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	ArchiveOptions
}

// SearchResult holds the matching topics and any warnings.
type SearchResult struct {
	Query     string   `json:"query"`
	Principal string   `json:"principal,omitempty"`
	TopicIDs  []int64  `json:"topic_ids"`
	Warnings  []string `json:"warnings"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query against an archive",
		Long: `Compile and run a query, printing the matching topic ids in
ascending order along with any warnings the pipeline produced.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "archive database path (required)")
	cmd.Flags().StringVar(&opts.As, "as", "", "run as the person with this email (default: anonymous)")

	return cmd
}

func runSearch(opts *SearchOptions, query string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   newTraceID(),
	}
	ctx := cmd.Context()

	st, principal, err := openArchive(ctx, formatter, &opts.ArchiveOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := search.New(st, nil)
	result, err := engine.Search(ctx, query, principal)
	if err != nil {
		_ = formatter.Error(ErrCodeQuery, "running query", err.Error())
		return WrapExitError(ExitCommandError, "running query", err)
	}

	payload := &SearchResult{
		Query:    query,
		TopicIDs: result.TopicIDs,
		Warnings: result.Warnings,
	}
	if payload.TopicIDs == nil {
		payload.TopicIDs = []int64{}
	}
	if principal != nil {
		payload.Principal = principal.Name
	}

	if formatter.Format == "json" {
		return formatter.Success(payload)
	}

	printWarnings(formatter.Writer, result.Warnings)
	if len(payload.TopicIDs) == 0 {
		fmt.Fprintln(formatter.Writer, "no topics matched")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d topic(s):\n", len(payload.TopicIDs))
	for _, id := range payload.TopicIDs {
		fmt.Fprintf(formatter.Writer, "  %d\n", id)
	}
	return nil
}

// newTraceID returns a time-ordered unique id correlating one search
// run across its outputs.
func newTraceID() string {
	return uuid.Must(uuid.NewV7()).String()
}
