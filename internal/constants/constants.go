package constants

// Path parameter names used in route patterns
const (
	PATH_PARAMETER_RUN_ID       = "run_id"
	PATH_PARAMETER_BENCHMARK_ID = "benchmark_id"
	PATH_PARAMETER_PROVIDER_ID  = "provider_id"
)

// Environment variable names
const (
	EnvVarTerminationFile = "TERMINATION_FILE"
	EnvVarReadyFile       = "READY_FILE"
)
