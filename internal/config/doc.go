// Package config handles configuration loading for mate-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file over a set of defaults,
// with environment variable expansion and validation. Running without any
// file is supported: Resolved returns the defaults, which answer every AI
// request from the local fallback.
//
// # Configuration File
//
// Default location (first match wins):
//
//  1. Path from MATE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/mate/gateway.yaml
//  3. ~/.config/mate/gateway.yaml
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
//	backend:
//	  base_url: "${MATE_BACKEND_URL}"
//
// Unset variables expand to the empty string.
//
// # Durations
//
// Duration values use Go's time.ParseDuration syntax ("800ms", "15s", "10m").
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8080"   # HTTP API
//	  grpc_addr: "127.0.0.1:50051"  # gRPC health (optional)
//
//	backend:
//	  base_url: "https://tutor.example.com/v1"  # empty = offline
//	  timeout: "15s"
//	  rate_limit: 5     # requests per second, 0 disables
//	  burst: 10
//
//	fallback:
//	  chat_latency: "800ms"
//	  image_latency: "1200ms"
//	  speech_latency: "1200ms"
//
//	presenter:
//	  avatar_id: "mate-alpha"
//	  stream_url: ""
//	  setup_delay: "800ms"
//	  speech_duration: "3500ms"
//
//	features:
//	  digital_human: true
//	  camera_search: true
//
//	announcement:
//	  enabled: false
//	  title: ""
//	  message: ""
//	  level: "info"     # info, warning, critical
//
//	transcript:
//	  journal_path: ""  # empty = in-memory journal
//
//	dedupe:
//	  ttl: "10m"
//	  max_entries: 1000
//
//	logging:
//	  level: "info"
//	  format: "text"    # text or json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Tailscale (tsnet) can replace the plain listeners:
//
//	tailscale:
//	  enabled: true
//	  hostname: "mate"
//	  auth_key: "${TS_AUTHKEY}"
//	  state_dir: "~/.local/share/mate/tsnet"
//	  funnel: false
package config
