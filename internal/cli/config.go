package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/reqmatch-backend/internal/matching"
)

const defaultConfigPath = "reqmatch.yaml"

func newConfigCommand() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage the engine configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default engine configuration (YAML or TOML by extension)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := matching.SaveConfig(path, matching.DefaultConfig()); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print the effective configuration after environment overrides",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := os.Getenv("REQMATCH_CONFIG")
			if len(args) == 1 {
				path = args[0]
			}
			c, err := matching.LoadConfig(path)
			if err != nil {
				return err
			}
			cmd.Printf("top_k=%d gate=%.2f concurrency=%d evidence_chunks=%d evidence_runes=%d namespace=%s lock_wait=%s\n",
				c.TopK, c.Gate, c.Concurrency, c.EvidenceChunks, c.EvidenceRunes, c.VectorNamespace, c.LockWait)
			return nil
		},
	}
	cfg.AddCommand(initCmd, showCmd)
	return cfg
}
