// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz / readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/sections for the section registry.
//   - GET /v1/sections/{section}/stats for crawl statistics derived from
//     persisted state via the StatsSource interface.
package api
