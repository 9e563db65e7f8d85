package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/reqmatch-backend/internal/services"
)

// Backend is the part of the application the commands drive.
type Backend struct {
	Matching services.MatchingService
	Auth     services.AuthService
	Close    func()
}

// Opener connects the backend lazily so that commands like "config init"
// run without a database.
type Opener func(ctx context.Context) (*Backend, error)

type rootOptions struct {
	open Opener
}

func NewRootCommand(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}
	root := &cobra.Command{
		Use:           "reqmatch",
		Short:         "Match documents against requirements",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSyncCommand(opts),
		newClassifyCommand(opts),
		newConfigCommand(),
		newTokenCommand(opts),
	)
	return root
}

func (o *rootOptions) backend(ctx context.Context) (*Backend, error) {
	b, err := o.open(ctx)
	if err != nil {
		return nil, err
	}
	if b.Close == nil {
		b.Close = func() {}
	}
	return b, nil
}
