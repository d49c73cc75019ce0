// Package config defines the configuration structure for routesync.
//
// Configuration is read from the env file the platform installer maintains
// (via godotenv), overridden by process environment (via viper), with
// remaining zero fields filled from struct defaults (creasty/defaults).
//
// # Configuration Structure
//
//	Configuration
//	├── Gateway   - Admin/data plane endpoints and container topology
//	├── Retry     - Bounded wait budgets (all constant interval)
//	├── LogLevel  - Logging verbosity
//	└── LeaseFile - Single-flight run lease path
//
// # Gateway Configuration
//
//	┌──────────────────┬──────────────────────────────────────┬─────────────────────────────────────────┐
//	│ Field            │ Default                              │ Description                             │
//	├──────────────────┼──────────────────────────────────────┼─────────────────────────────────────────┤
//	│ AdminURL         │ "http://localhost:9180/apisix/admin" │ Admin control-plane base URL            │
//	│ AdminKey         │ ""                                   │ Static admin key (X-API-KEY header)     │
//	│ DataPlaneURL     │ "http://localhost:9080"              │ Proxy port, used for probes only        │
//	│ RequiredPlugin   │ "ai-proxy"                           │ Capability that gates readiness         │
//	│ ContainerName    │ "apisix"                             │ Gateway container (recovery restart)    │
//	│ Network          │ "vutf-network"                       │ Shared container network                │
//	│ PodmanSocket     │ ""                                   │ Empty disables topology + restart       │
//	│ APIServiceURL    │ "http://violentutf-api:8000"         │ Upstream for the static system routes   │
//	│ DashboardOrigins │ "http://localhost:3000,…"            │ CORS allow-list (comma separated)       │
//	└──────────────────┴──────────────────────────────────────┴─────────────────────────────────────────┘
//
// # Retry Configuration
//
//	┌────────────────────┬─────────┬────────────────────────────────────────┐
//	│ Field              │ Default │ Description                            │
//	├────────────────────┼─────────┼────────────────────────────────────────┤
//	│ ConnectAttempts    │ 30      │ Admin connectivity poll attempts       │
//	│ ConnectInterval    │ 2s      │ Delay between connectivity polls       │
//	│ CapabilityAttempts │ 10      │ Plugin availability poll attempts      │
//	│ CapabilityInterval │ 3s      │ Delay between capability polls         │
//	│ AdminAttempts      │ 3       │ Transport retries per admin call       │
//	│ AdminInterval      │ 1s      │ Delay between transport retries        │
//	│ ProbeTimeout       │ 10s     │ Per-probe data-plane timeout           │
//	│ VerifyWorkers      │ 4       │ Parallel verification probes           │
//	└────────────────────┴─────────┴────────────────────────────────────────┘
//
// # Provider Blocks
//
// Built-in providers are gated by an enabled flag and carry fixed model
// lists:
//
//	OPENAI_ENABLED, OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODELS
//	ANTHROPIC_ENABLED, ANTHROPIC_API_KEY, ANTHROPIC_BASE_URL, ANTHROPIC_MODELS
//	OLLAMA_ENABLED, OLLAMA_ENDPOINT, OLLAMA_MODELS
//
// Generic providers come as numbered blocks, scanned once into the typed
// provider list (i ranges 1..10):
//
//	OPENAPI_{i}_ENABLED
//	OPENAPI_{i}_ID
//	OPENAPI_{i}_NAME
//	OPENAPI_{i}_BASE_URL
//	OPENAPI_{i}_AUTH_TYPE    one of none|bearer|api_key|basic
//	OPENAPI_{i}_AUTH_TOKEN
//	OPENAPI_{i}_SPEC_PATH
//
// # Debug Logging
//
// DebugMap() returns a map safe for structured logging; the admin key is
// redacted:
//
//	zap.S().Infow("configuration loaded", "config", cfg.DebugMap())
package config
