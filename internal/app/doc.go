// Package app wires configuration, logging, telemetry, services and HTTP
// handlers into a runnable server.
//
// # Initialization Flow
//
//	1. Load configuration from config.yaml and LCS_* environment variables
//	2. Initialize the global slog logger
//	3. Initialize OpenTelemetry tracing and Prometheus-backed metrics
//	4. Create the analysis and health services
//	5. Build the chi router and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//		return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then drains in-flight requests within
// Server.ShutdownTimeout and flushes telemetry. Errors are returned to the
// caller; the package never calls os.Exit.
package app
