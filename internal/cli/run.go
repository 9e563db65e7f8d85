package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/reqmatch-backend/internal/matching"
	"github.com/yungbote/reqmatch-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

type runFlags struct {
	owner       string
	json        bool
	concurrency int
	quiet       bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", os.Getenv("REQMATCH_OWNER"), "owner user id (defaults to $REQMATCH_OWNER)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "parallel document evaluations (0 uses the engine default)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress progress output")
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

// execute runs one engine pass as the flagged owner. Progress goes to stderr
// and the result to stdout. Interrupts cancel the pass before it commits.
func (o *rootOptions) execute(cmd *cobra.Command, f *runFlags, pass func(context.Context, services.MatchingService, services.RunOptions) (*matching.Result, error)) error {
	owner, err := parseID("owner", f.owner)
	if err != nil {
		return fmt.Errorf("%w (set --owner or REQMATCH_OWNER)", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{OwnerUserID: owner, Subject: owner.String()})

	b, err := o.backend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	runOpts := services.RunOptions{Concurrency: f.concurrency}
	var (
		events chan matching.ProgressEvent
		done   chan struct{}
	)
	if !f.quiet {
		events = make(chan matching.ProgressEvent, 64)
		done = make(chan struct{})
		runOpts.Progress = events
		go printProgress(cmd.ErrOrStderr(), events, done)
	}

	res, runErr := pass(ctx, b.Matching, runOpts)
	if events != nil {
		close(events)
		<-done
	}
	if runErr != nil {
		return runErr
	}
	if f.json {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return writeTable(cmd.OutOrStdout(), res)
}
