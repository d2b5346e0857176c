package types

// TableRenderer is implemented by command results that print as a table
// in the default output mode. JSON output ignores it.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	// EmptyMessage is printed instead of a table when Rows is empty
	EmptyMessage() string
}

// TableRenderable lets a result hand back a separate renderer, e.g. when the
// JSON shape and the table view differ
type TableRenderable interface {
	AsTableRenderer() TableRenderer
}
