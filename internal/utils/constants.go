package utils

// Upload thresholds (binary units)
const (
	UploadChunkSize    = 8 * 1024 * 1024 // 8 MiB
	UploadMinChunkSize = 256 * 1024      // Drive requires multiples of 256 KiB
)

// OAuth scopes
const (
	ScopeFull = "https://www.googleapis.com/auth/drive"
	ScopeFile = "https://www.googleapis.com/auth/drive.file"
)

// ScopesSync is the scope set requested by the mirror daemon
var ScopesSync = []string{ScopeFull}

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Request timeout applied to each remote call, in seconds
const DefaultRequestTimeoutSeconds = 60

// Schema version
const SchemaVersion = "1.0"

// MIME types
const (
	MimeTypeFolder      = "application/vnd.google-apps.folder"
	MimeTypeOctetStream = "application/octet-stream"
)
