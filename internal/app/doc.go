// Package app wires the TierVC server together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from .env, an optional YAML file and the environment
//  2. Initialize logging and OpenTelemetry
//  3. Start the WebSocket hub
//  4. Build the analysis providers, evaluator, result store and services
//  5. Set up the chi router, middleware and handlers
//  6. Create the HTTP server
//
// Missing provider credentials do not stop the server. Evaluations then fail
// per record and /api/health/ready answers 503 until the keys are set.
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown timeout, stops the hub and flushes telemetry.
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
