package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yungbote/reqmatch-backend/internal/matching"
)

// printProgress drains events until ch is closed.
func printProgress(w io.Writer, ch <-chan matching.ProgressEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range ch {
		line := fmt.Sprintf("[%3d%%] %s", ev.Progress, ev.Status)
		if ev.Message != "" {
			line += " " + ev.Message
		}
		fmt.Fprintln(w, line)
	}
}

func writeJSON(w io.Writer, res *matching.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeTable(w io.Writer, res *matching.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tREQUIREMENT\tSCORE\tCONFIDENCE\tMATCHED\tREASON")
	for _, c := range res.Classifications {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%t\t%s\n",
			c.DocumentID, c.RequirementID, c.Score, c.Confidence, c.IsMatched, oneLine(c.Reason, 80))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nstatus=%s classifications=%d errors=%d", res.Status, len(res.Classifications), len(res.Errors.Items))
	if res.Version > 0 {
		fmt.Fprintf(w, " version=%d", res.Version)
	}
	fmt.Fprintln(w)
	for _, item := range res.Errors.Items {
		target := ""
		if item.DocumentID != nil {
			target = " document=" + item.DocumentID.String()
		}
		if item.RequirementID != nil {
			target += " requirement=" + item.RequirementID.String()
		}
		fmt.Fprintf(w, "  %s%s: %s\n", item.Kind, target, item.Message)
	}
	return nil
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
