// Package api hosts the HTTP server, middleware, and handlers of the mirror
// service. Notable routes:
//   - POST /task to mirror a page or copy an attachment.
//   - POST /save/init, POST /save/end and GET /save for the archival session.
//   - POST /users and GET /users for the user registry.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
