// Package services implements the reconciliation engine's business logic.
//
// The pipeline is a single sequential control loop per invocation; the
// engine runs to completion and reports, it is not a daemon.
//
//	ReadinessGate ──► Compiler ──► Session (diff + upserts) ──► Verifier ──► Report
//
// # ReadinessGate
//
// Blocks until the admin API answers and the required plugin is available.
// Both polls are bounded, constant-interval loops. If the capability never
// appears the gate performs exactly one recovery action (restarting the
// gateway container) and re-polls once.
//
//	connectivity poll ──► capability poll ──► Ready
//	                            │
//	                   (budget exhausted)
//	                            │
//	                            ▼
//	                  restart container (once)
//	                            │
//	                            ▼
//	        connectivity + capability poll ──► Ready | CapabilityMissing
//
// Rejected admin credentials are permanent and abort immediately at any
// point.
//
// # Session
//
// One Session owns one reconciliation pass. Every expected route moves
// through the per-route state machine:
//
//	┌─────────┐     ┌─────────┐
//	│ UNKNOWN │────►│ MATCHED │ (terminal)
//	└─────────┘     └─────────┘
//	     │
//	     ▼
//	┌─────────┐     ┌──────────┐
//	│ MISSING │────►│ UPSERTED │ (terminal)
//	└─────────┘     └──────────┘
//	     │
//	     ▼
//	┌───────────────┐
//	│ UPSERT_FAILED │ (terminal)
//	└───────────────┘
//
// Matching is wildcard-aware: an expected URI ending in `*` matches any
// discovered URI sharing the literal prefix. Extra discovered routes are
// reported, never deleted. Coverage = |matched ∪ upserted| / |catalog|;
// ≥0.90 pass, ≥0.75 warn, else fail.
//
// # Verifier
//
// Probes matched and upserted routes through the data plane with a bounded
// worker pool. Classification: transport failure, 404, 502 and 503 are
// unreachable; any other HTTP response proves the route is wired (a 401
// from the upstream means the proxy path and auth enforcement work).
//
// # Thread Safety
//
// The engine itself is sequential. Verification probes run concurrently
// but are read-only and independent; their results are collected in
// catalog order.
package services
