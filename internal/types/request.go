package types

// RequestType classifies a Drive API request for logging and error context
type RequestType string

const (
	RequestTypeGetByID      RequestType = "get_by_id"
	RequestTypeListOrSearch RequestType = "list_or_search"
	RequestTypeUpload       RequestType = "upload"
	RequestTypeMutation     RequestType = "mutation"
)

// RequestContext carries per-request metadata through the API layer
type RequestContext struct {
	Profile           string      `json:"profile"`
	DriveID           string      `json:"driveId,omitempty"`
	InvolvedFileIDs   []string    `json:"involvedFileIds"`
	InvolvedParentIDs []string    `json:"involvedParentIds"`
	RequestType       RequestType `json:"requestType"`
	TraceID           string      `json:"traceId"`
}

// CLIError is the stable, machine-readable error shape
type CLIError struct {
	Code        string                 `json:"code"`
	HTTPStatus  int                    `json:"httpStatus,omitempty"`
	Message     string                 `json:"message"`
	DriveReason string                 `json:"driveReason,omitempty"`
	Retryable   bool                   `json:"retryable"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// CLIWarning is a non-fatal notice attached to command output
type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// CLIOutput is the JSON envelope written by every command
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

// OutputFormat selects how command results are rendered
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// GlobalFlags holds flags shared by every command
type GlobalFlags struct {
	Config        string
	LocalFolder   string
	DriveFolderID string
	Credentials   string
	OutputFormat  OutputFormat
	LogFile       string
	Quiet         bool
	Verbose       bool
	Debug         bool
	JSON          bool
}
