package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/internal/compiler"
	"github.com/Cybonto/violentutf-routesync/internal/config"
	"github.com/Cybonto/violentutf-routesync/internal/models"
)

// Engine runs the full pipeline: readiness gate, route compilation,
// reconciliation, verification, report. One Engine drives exactly one run;
// it holds no state between invocations.
type Engine struct {
	cfg       *config.Configuration
	providers []models.ProviderConfig
	gate      *ReadinessGate
	compiler  *compiler.Compiler
	session   *Session
	verifier  *Verifier
	log       *zap.SugaredLogger
}

func NewEngine(cfg *config.Configuration, providers []models.ProviderConfig, gate *ReadinessGate, comp *compiler.Compiler, session *Session, verifier *Verifier) *Engine {
	return &Engine{
		cfg:       cfg,
		providers: providers,
		gate:      gate,
		compiler:  comp,
		session:   session,
		verifier:  verifier,
		log:       zap.S().Named("engine"),
	}
}

// Run executes a full reconciliation run. With dryRun the pipeline stops
// after the diff: nothing is written and nothing is probed. Only readiness
// failure and rejected admin credentials return an error; everything else
// is captured in the report.
func (e *Engine) Run(ctx context.Context, dryRun bool) (*models.Report, error) {
	report := models.NewReport(e.cfg.Gateway.AdminURL)

	if err := e.gate.Await(ctx); err != nil {
		e.log.Errorw("gateway never became ready", "error", err)
		report.Abort(err)
		return report, err
	}

	compiled := e.compiler.Compile(ctx, e.providers)
	report.Skipped = compiled.Skipped
	e.log.Infow("expected catalog compiled",
		"routes", len(compiled.Catalog), "skipped", len(compiled.Skipped))

	if dryRun {
		result, err := e.session.Plan(ctx, compiled.Catalog)
		if err != nil {
			report.Abort(err)
			return report, err
		}
		report.Reconciliation = result
		report.Finish()
		return report, nil
	}

	result, err := e.session.Reconcile(ctx, compiled.Catalog)
	if err != nil {
		report.Abort(err)
		return report, err
	}
	report.Reconciliation = result

	report.Verifications = e.verifier.Verify(ctx, result.Converged())
	report.Finish()
	return report, nil
}

// VerifyOnly probes the routes of the expected catalog that the gateway
// already holds, without writing anything.
func (e *Engine) VerifyOnly(ctx context.Context) (*models.Report, error) {
	report := models.NewReport(e.cfg.Gateway.AdminURL)

	compiled := e.compiler.Compile(ctx, e.providers)
	report.Skipped = compiled.Skipped

	result, err := e.session.Plan(ctx, compiled.Catalog)
	if err != nil {
		report.Abort(err)
		return report, err
	}
	report.Reconciliation = result

	report.Verifications = e.verifier.Verify(ctx, result.Matched)
	report.Finish()
	return report, nil
}
