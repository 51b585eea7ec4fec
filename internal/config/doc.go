// Package config loads the application configuration.
//
// # Configuration Sources
//
// Values are resolved in increasing order of precedence:
//
//	1. Default()
//	2. The YAML file named by LCS_CONFIG_FILE (config.yaml when unset)
//	3. Environment variables with the LCS_ prefix
//
// Nested sections map to underscore-joined names:
//
//	LCS_SERVER_PORT=9090
//	LCS_LOGGING_LEVEL=debug
//	LCS_MODEL_CRRA=3
//	LCS_ANALYSIS_REFERENCE_PERIOD=1
//	LCS_ANALYSIS_GROWTH_RATIO_FLOOR=0.2
//
// The merged configuration is validated with struct tags, including the model
// parameters, and any failure is reported as a CONFIG application error.
//
// # Paths
//
// Relative directories resolve against Paths.BaseDir, or the working
// directory when it is empty. ResolvePaths also names the report files a run
// writes under Analysis.OutputDir.
package config
