package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

func newSyncCommand(o *rootOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "sync <requirement-id>",
		Short: "Re-evaluate one requirement against all of the owner's documents",
		Long: `Runs a full synchronization pass for a requirement. Every document owned
by the caller is scored, and the requirement's classifications are replaced
atomically. An interrupted pass leaves the previous classifications intact.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqID, err := parseID("requirement", args[0])
			if err != nil {
				return err
			}
			return o.execute(cmd, f, func(ctx context.Context, m services.MatchingService, opts services.RunOptions) (*matching.Result, error) {
				return m.SyncRequirement(ctx, reqID, opts)
			})
		},
	}
	f.register(cmd)
	return cmd
}
