// Package gateway orchestrates the mate-gateway server components.
//
// # Overview
//
// The Gateway owns every long-lived component: the AI gateway, the in-memory
// transcript with its SQLite journal, the presenter orchestrator and tracker,
// the idempotency replay cache, the HTTP server, and an optional gRPC health
// server.
//
// # HTTP API
//
// General endpoints live in api.go:
//
//   - GET /api/config - Client-facing config (announcement, feature flags)
//   - POST /api/chat - Ask a text question
//   - POST /api/analyze-image - Ask about an image (camera_search flag)
//   - GET, DELETE /api/messages - List (?format=html) or clear the transcript
//   - GET /api/messages/stream - SSE of appended transcript messages
//   - GET /api/history - Journal tail (?limit=N)
//   - GET, POST /api/questions - Question notebook
//   - GET, DELETE /api/questions/{id}
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check
//
// Presenter endpoints live in presenter_api.go and answer 403 when the
// digital_human flag is off:
//
//   - POST, DELETE /api/presenter/session - Start or stop a session
//   - POST /api/presenter/ask - Ask, starting a session if needed
//   - POST /api/presenter/sessions/{id}/text - Ask on a specific session
//   - GET, DELETE /api/presenter/state - Tracker snapshot or reset
//   - GET /api/presenter/events - SSE of presenter events
//
// # gRPC
//
// When server.grpc_addr is set (or Tailscale is enabled) the standard
// grpc.health.v1 service is served. The empty service name is always
// SERVING; "mate.presenter" follows the digital_human flag and
// "mate.backend" reports whether a backend base URL is configured.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return gw.Run(ctx) // blocks until ctx is canceled
//
// Shutdown stops the servers, the presenter, and the replay cache, then closes
// the store.
package gateway
