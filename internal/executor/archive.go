package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tornadohq/tornado/internal/event"
	"github.com/tornadohq/tornado/internal/value"
)

const (
	archiveTypeKey  = "archive_type"
	archiveEventKey = "event"
)

// pathPlaceholder matches "${key}" segments in an archive path template,
// each resolved against the action's own payload fields (not the full
// accessor grammar of §4.1 — archive paths only ever address sibling
// payload keys, never the event or extracted vars).
var pathPlaceholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ArchiveConfig configures an ArchiveExecutor: paths maps an
// "archive_type" payload value to a path template under base_path;
// default_path is used when the type is unrecognized or its template
// cannot be resolved.
type ArchiveConfig struct {
	BasePath    string
	DefaultPath string
	Paths       map[string]string
}

// ArchiveExecutor appends each received action's "event" payload field,
// JSON-encoded, to a file chosen by its "archive_type" payload field.
// It is mutable (Executor, not StatelessExecutor): callers must run it
// inside a single-worker mailbox.
type ArchiveExecutor struct {
	config ArchiveConfig
}

// NewArchiveExecutor constructs an ArchiveExecutor from config.
func NewArchiveExecutor(config ArchiveConfig) *ArchiveExecutor {
	return &ArchiveExecutor{config: config}
}

func (e *ArchiveExecutor) Execute(action *event.Action) error {
	obj, ok := action.Payload.AsObject()
	if !ok {
		return &MissingArgumentError{Message: "action payload is not an object"}
	}

	archiveTypeVal, ok := obj[archiveTypeKey]
	archiveType, isStr := archiveTypeVal.AsString()
	if !ok || !isStr {
		return &MissingArgumentError{Message: archiveTypeKey + " key not found in action payload or it is not a string"}
	}

	eventValue, ok := obj[archiveEventKey]
	if !ok {
		return &MissingArgumentError{Message: "expected the " + archiveEventKey + " key to be in action payload"}
	}
	eventBytes, err := json.Marshal(eventValue)
	if err != nil {
		return &SerdeError{Message: "cannot serialize event: " + err.Error()}
	}
	eventBytes = append(eventBytes, '\n')

	relPath := e.resolvePath(archiveType, obj)
	return e.write(relPath, eventBytes)
}

// resolvePath picks and resolves the path template for archiveType,
// falling back to default_path if the type is unknown or a placeholder
// cannot be resolved against the payload.
func (e *ArchiveExecutor) resolvePath(archiveType string, payload map[string]value.Value) string {
	template, ok := e.config.Paths[archiveType]
	if !ok {
		return e.config.DefaultPath
	}

	missing := false
	resolved := pathPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		key := pathPlaceholder.FindStringSubmatch(match)[1]
		v, ok := payload[key]
		if !ok {
			missing = true
			return match
		}
		return v.Stringify()
	})
	if missing {
		return e.config.DefaultPath
	}
	return resolved
}

func (e *ArchiveExecutor) write(relativePath string, buf []byte) error {
	fullPath := filepath.Join(e.config.BasePath, relativePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return &ActionExecutionError{Retryable: true, Message: fmt.Sprintf("cannot create archive directory: %v", err)}
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &ActionExecutionError{Retryable: true, Message: fmt.Sprintf("cannot open archive file: %v", err)}
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		return &ActionExecutionError{Retryable: true, Message: fmt.Sprintf("cannot write to file: %v", err)}
	}
	return nil
}
