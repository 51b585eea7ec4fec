// Package services implements the business logic layer between the HTTP
// handlers and command-line tools and the analysis pipeline.
//
// # Analysis
//
// AnalysisService drives one run of the saving-rate pipeline:
//
//	svc := services.NewAnalysisService(workbook, workbook, tracer, metrics, logger)
//	result, err := svc.Run(ctx, services.RunRequest{
//		Params:          params,
//		AnalysisOptions: services.OptionsFromConfig(cfg.Analysis),
//	})
//	if err != nil {
//		return err
//	}
//	_, err = svc.Export(ctx, result, paths)
//
// Run asks the Solver for consumption rules, asks the Simulator for a
// history with the tracked variables, and collates it. Analyze skips the
// first two steps for callers that already hold a history, such as the
// HTTP API. Every run gets a UUID, a span and a collation metric sample.
//
// Export writes all report files concurrently with an errgroup; the first
// failure cancels writers that have not started.
//
// # Health
//
// HealthService reports liveness and uptime for the /healthz endpoint.
package services
