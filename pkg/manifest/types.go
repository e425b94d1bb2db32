package manifest

// HandlerType enumerates the supported handler kinds.
type HandlerType string

const (
	// HandlerInproc dispatches to a handler registered by name in process.
	HandlerInproc HandlerType = "inproc"
)
