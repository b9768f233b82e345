// Package main hosts the webpage analysis service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes signup/login, upload, listing, viewing,
//     and file-download endpoints plus health and metrics. Uploads arrive as multipart
//     forms and are handed to the orchestrator; everything else is a scoped read
//     against the stores.
//   - Upload orchestration: internal/orchestrator validates the request, resolves the
//     HTML (uploaded file or fetched URL), fans out concurrently to the file store and
//     the accessibility/performance/markup analyzers, joins, then calls the LLM
//     reviewer with the merged audit bundle. Analyzer failures degrade the result via
//     per-analyzer error flags; only validation, authorization, resolution, and store
//     failures fail the request.
//   - Persistence: the webpage record and its analysis result are committed together,
//     atomically, to Postgres (or the in-memory store in development). Raw HTML,
//     design mocks, and specification files go to the configured BlobStore
//     (memory/local/GCS). A compact Pub/Sub event is published after each commit when
//     a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides
//     structured logging; Prometheus metrics are exported via /metrics. The service is
//     stateless across requests, suitable for Cloud Run scale-out.
//
// Operational notes:
//   - Concurrency model: per-request fan-out with a fixed arm set; each analyzer call
//     carries its own timeout, the LLM reviewer a longer one. Shutdown is coordinated
//     via context cancellation from main.
//   - Observability: zap logs carry analyzer names and webpage ids at key transitions;
//     Prometheus counters/histograms track uploads, analyzer calls, and HTTP activity.
//
// Quick checklist:
//   - Configure env vars with the PAGELENS_ prefix: server port, analyzer base URLs,
//     db DSN, storage and publisher providers.
//   - Run locally: go run ./cmd/pagelens -config config.yaml (or rely solely on env
//     overrides); the defaults use in-memory stores.
package main
