package bedrock_usage_analyzer

// Exporting a mostly empty main.go file is required for mockery to work: https://vektra.github.io/mockery/v2.38/notes/#error-no-go-files-found-in-root-search-path

const (
	ToolName     = "bedrock_usage_analyzer"
	MetricPrefix = "bedrock_usage"
)
