package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

func newClassifyCommand(o *rootOptions) *cobra.Command {
	f := &runFlags{}
	var reqArgs []string
	cmd := &cobra.Command{
		Use:   "classify <document-id>",
		Short: "Evaluate one document against the owner's requirements",
		Long: `Classifies a single document. Without --requirement every requirement owned
by the caller is evaluated. Each pair is written independently, so one failing
requirement does not block the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID, err := parseID("document", args[0])
			if err != nil {
				return err
			}
			var reqIDs []uuid.UUID
			for _, raw := range reqArgs {
				id, err := parseID("requirement", raw)
				if err != nil {
					return err
				}
				reqIDs = append(reqIDs, id)
			}
			return o.execute(cmd, f, func(ctx context.Context, m services.MatchingService, opts services.RunOptions) (*matching.Result, error) {
				return m.ClassifyDocument(ctx, docID, reqIDs, opts)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVarP(&reqArgs, "requirement", "r", nil, "limit to these requirement ids (repeatable)")
	return cmd
}
