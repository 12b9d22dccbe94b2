package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeManifestParse    Code = "MANIFEST_PARSE_ERROR"
	CodeChartReadError   Code = "CHART_READ_ERROR"
	CodePathPattern      Code = "PATH_PATTERN_ERROR"
	CodeToolNotFound     Code = "TOOL_NOT_FOUND"
	CodeHelmCommand      Code = "HELM_COMMAND_ERROR"
	CodeKubectlCommand   Code = "KUBECTL_COMMAND_ERROR"
	CodeClusterAccess    Code = "CLUSTER_ACCESS_ERROR"
	CodeRenderError      Code = "RENDER_ERROR"
	CodeTimeout          Code = "TIMEOUT_ERROR"
)

func (c Code) String() string {
	return string(c)
}
