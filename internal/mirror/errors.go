package mirror

import "errors"

// Sentinel errors returned (wrapped) by the task executor and task codec.
var (
	ErrPathExtraction    = errors.New("cannot extract mirror path from URL")
	ErrDirectoryCreation = errors.New("cannot create mirror directory")
	ErrFileWrite         = errors.New("cannot write mirrored page")
	ErrFileCopy          = errors.New("cannot copy asset into mirror")
	ErrMarkupParse       = errors.New("cannot parse page markup")
	ErrUnknownTaskType   = errors.New("unknown task type")
	ErrMissingField      = errors.New("missing task field")
)

// Category maps an error to a short label for logs and metrics.
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPathExtraction):
		return "path_extraction"
	case errors.Is(err, ErrDirectoryCreation):
		return "directory_creation"
	case errors.Is(err, ErrFileWrite):
		return "file_write"
	case errors.Is(err, ErrFileCopy):
		return "file_copy"
	case errors.Is(err, ErrMarkupParse):
		return "markup_parse"
	case errors.Is(err, ErrUnknownTaskType), errors.Is(err, ErrMissingField):
		return "invalid_task"
	default:
		return "unknown"
	}
}
