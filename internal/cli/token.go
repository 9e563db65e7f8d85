package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCommand(o *rootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseID("owner", owner)
			if err != nil {
				return err
			}
			b, err := o.backend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			tok, err := b.Auth.IssueToken(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
