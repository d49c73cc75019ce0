// Package report renders the run envelope: a colored human-readable
// summary for terminals and raw JSON for machine consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/Cybonto/violentutf-routesync/internal/models"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func verdictLabel(v models.Verdict) string {
	switch v {
	case models.VerdictPass:
		return green("PASS")
	case models.VerdictWarn:
		return yellow("WARN")
	case models.VerdictFail:
		return red("FAIL")
	default:
		return red("ABORTED")
	}
}

// RenderJSON writes the raw report document.
func RenderJSON(w io.Writer, r *models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Render writes the human-readable report: one summary line, the
// per-provider breakdown and the verdict.
func Render(w io.Writer, r *models.Report) {
	if r.Reconciliation == nil {
		fmt.Fprintf(w, "%s run %s aborted: %s\n", verdictLabel(r.Verdict), r.RunID, r.Error)
		return
	}

	rec := r.Reconciliation
	fmt.Fprintf(w, "%s expected=%d discovered=%d matched=%d upserted=%d failed=%d extra=%d coverage=%.0f%%\n",
		verdictLabel(r.Verdict),
		rec.ExpectedCount, rec.DiscoveredCount,
		len(rec.Matched), len(rec.Upserted), len(rec.UpsertFailures), len(rec.Extra),
		rec.Coverage*100,
	)

	if len(r.Providers) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Providers"))
		for _, p := range r.Providers {
			fmt.Fprintf(w, "  %-14s expected=%d upserted=%d failed=%d reachable=%d unreachable=%d\n",
				p.Provider, p.Expected, p.Upserted, p.Failed, p.Reachable, p.Unreachable)
		}
	}

	if len(rec.UpsertFailures) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Upsert failures"))
		for _, f := range rec.UpsertFailures {
			fmt.Fprintf(w, "  %s %s: %s\n", red("✗"), f.Spec.RouteID, f.Reason)
		}
	}

	if len(rec.Extra) > 0 {
		fmt.Fprintf(w, "\n%s (reported only, never deleted)\n", bold("Extra routes"))
		for _, e := range rec.Extra {
			fmt.Fprintf(w, "  %s %s %s\n", yellow("?"), e.RouteID, e.URI)
		}
	}

	if len(r.Verifications) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Verification"))
		for _, v := range r.Verifications {
			mark := green("✓")
			if !v.Reachable {
				mark = red("✗")
			}
			detail := ""
			if v.Detail != "" {
				detail = " (" + v.Detail + ")"
			}
			fmt.Fprintf(w, "  %s %-28s %s%s\n", mark, v.RouteID, v.URI, detail)
		}
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold("Skipped"))
		for _, s := range r.Skipped {
			name := s.Provider
			if s.Model != "" {
				name += "/" + s.Model
			}
			fmt.Fprintf(w, "  %s %s: %s\n", yellow("-"), name, s.Reason)
		}
	}

	fmt.Fprintf(w, "\nrun %s finished in %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
