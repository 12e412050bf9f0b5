// Package session drives one integration-test session of the VM inventory
// plugin against a virtualization endpoint.
//
// # Lifecycle
//
//	stage scratch + cache dirs, generate inventory sources
//	        │
//	        ▼
//	register cleaner (at-most-once) + signal handler
//	        │
//	        ▼
//	endpoint preflight (optional, backoff-retried)
//	        │
//	        ▼
//	┌──────────────────────────────────────────────────────┐
//	│ fixed 7-step sequence, strictly sequential            │
//	│                                                      │
//	│ 1 install-dependencies                               │
//	│ 2 prepare-environment                                │
//	│ 3 baseline-listing        (selector → cached source) │
//	│ 4 cache-validation                                   │
//	│ 5 format-negotiation      (yaml + toml listing)      │
//	│ 6 functional-validation   (selector → plain source)  │
//	│ 7 options-validation      (selector → scratch dir)   │
//	└──────────────────────────────────────────────────────┘
//	        │
//	        ▼
//	cleanup (always) → exit code of first failing step, else 0
//
// A failure at step i skips steps i+1..7 and goes straight to cleanup; the
// failing child's exit code is propagated unchanged. SIGINT/SIGTERM route
// through the same once-guarded cleaner and exit with 128+signal.
//
// The environment handed to each invocation is an explicit value
// (Environment), not ambient process state; only the active inventory
// selector is rebound between steps.
package session
