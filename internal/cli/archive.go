package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/loreline/topicsearch/internal/resolve"
	"github.com/loreline/topicsearch/internal/store"
)

// ArchiveOptions are the flags shared by commands that hit a database.
type ArchiveOptions struct {
	DB string // database path
	As string // principal email; empty means anonymous
}

// openArchive opens the store and resolves the --as principal. The
// caller owns closing the returned store.
func openArchive(ctx context.Context, formatter *OutputFormatter, opts *ArchiveOptions) (*store.Store, *resolve.Principal, error) {
	if opts.DB == "" {
		_ = formatter.Error(ErrCodeDatabase, "--db is required", nil)
		return nil, nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(opts.DB); err != nil {
		message := fmt.Sprintf("database %q not found", opts.DB)
		_ = formatter.Error(ErrCodeDatabase, message, nil)
		return nil, nil, WrapExitError(ExitCommandError, message, err)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		message := fmt.Sprintf("opening database %q", opts.DB)
		_ = formatter.Error(ErrCodeDatabase, message, err.Error())
		return nil, nil, WrapExitError(ExitCommandError, message, err)
	}

	if opts.As == "" {
		return st, nil, nil
	}

	person, err := st.PersonByEmail(ctx, opts.As)
	if err != nil {
		st.Close()
		_ = formatter.Error(ErrCodePrincipal, "looking up principal", err.Error())
		return nil, nil, WrapExitError(ExitCommandError, "looking up principal", err)
	}
	if person == nil {
		st.Close()
		message := fmt.Sprintf("no person with email %q", opts.As)
		_ = formatter.Error(ErrCodePrincipal, message, nil)
		return nil, nil, NewExitError(ExitCommandError, message)
	}

	return st, &resolve.Principal{PersonID: person.ID, Name: person.Name}, nil
}
