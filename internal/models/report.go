package models

import (
	"time"

	"github.com/google/uuid"
)

type SkippedProvider struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Reason   string `json:"reason"`
}

type ProviderSummary struct {
	Provider    string `json:"provider"`
	Expected    int    `json:"expected"`
	Upserted    int    `json:"upserted"`
	Failed      int    `json:"failed"`
	Reachable   int    `json:"reachable"`
	Unreachable int    `json:"unreachable"`
}

// Report is the run envelope handed to the renderer: one reconciliation
// result, the verification outcomes, and a per-provider rollup.
type Report struct {
	RunID           uuid.UUID             `json:"runId"`
	StartedAt       time.Time             `json:"startedAt"`
	FinishedAt      time.Time             `json:"finishedAt"`
	GatewayAdminURL string                `json:"gatewayAdminUrl"`
	Reconciliation  *ReconciliationResult `json:"reconciliation,omitempty"`
	Verifications   []VerificationResult  `json:"verifications,omitempty"`
	Skipped         []SkippedProvider     `json:"skipped,omitempty"`
	Providers       []ProviderSummary     `json:"providers,omitempty"`
	Verdict         Verdict               `json:"verdict"`
	Error           string                `json:"error,omitempty"`
}

func NewReport(adminURL string) *Report {
	return &Report{
		RunID:           uuid.New(),
		StartedAt:       time.Now().UTC(),
		GatewayAdminURL: adminURL,
		Verdict:         VerdictAborted,
	}
}

// Abort stamps the report with the terminal error that stopped the run
// before route work completed.
func (r *Report) Abort(err error) {
	r.FinishedAt = time.Now().UTC()
	r.Verdict = VerdictAborted
	if err != nil {
		r.Error = err.Error()
	}
}

// Finish closes the report: stamps the end time, derives the verdict from
// the reconciliation pass and builds the per-provider rollup.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
	if r.Reconciliation != nil {
		r.Verdict = r.Reconciliation.Verdict
	}
	r.rollup()
}

func (r *Report) rollup() {
	if r.Reconciliation == nil {
		return
	}

	index := make(map[string]*ProviderSummary)
	order := []string{}
	summary := func(provider string) *ProviderSummary {
		if provider == "" {
			provider = "system"
		}
		if s, ok := index[provider]; ok {
			return s
		}
		s := &ProviderSummary{Provider: provider}
		index[provider] = s
		order = append(order, provider)
		return s
	}

	for _, spec := range r.Reconciliation.Matched {
		summary(spec.Provider).Expected++
	}
	for _, spec := range r.Reconciliation.Missing {
		summary(spec.Provider).Expected++
	}
	for _, spec := range r.Reconciliation.Upserted {
		summary(spec.Provider).Upserted++
	}
	for _, failure := range r.Reconciliation.UpsertFailures {
		summary(failure.Spec.Provider).Failed++
	}
	for _, v := range r.Verifications {
		s := summary(v.Provider)
		if v.Reachable {
			s.Reachable++
		} else {
			s.Unreachable++
		}
	}

	r.Providers = r.Providers[:0]
	for _, name := range order {
		r.Providers = append(r.Providers, *index[name])
	}
}
