package mirror

import (
	"encoding/json"
	"fmt"
)

// TaskType discriminates the Task variants on the wire.
type TaskType string

// Task types accepted in the task_type field.
const (
	TaskTypeParse  TaskType = "parse"
	TaskTypeAttach TaskType = "attach"
)

// Task is one unit of archival work: a PageTask or an AttachTask.
type Task interface {
	Type() TaskType
	TargetURL() string
}

// PageTask carries a rendered page to mirror.
type PageTask struct {
	URL  string
	Body string
	Head string
}

// Type implements Task.
func (PageTask) Type() TaskType { return TaskTypeParse }

// TargetURL implements Task.
func (t PageTask) TargetURL() string { return t.URL }

// AttachTask carries an already-downloaded asset referenced by a page.
type AttachTask struct {
	URL      string
	FilePath string
	PageURL  string
}

// Type implements Task.
func (AttachTask) Type() TaskType { return TaskTypeAttach }

// TargetURL implements Task.
func (t AttachTask) TargetURL() string { return t.URL }

// Result is what a successful execution hands back to the caller.
type Result struct {
	Assets  []string `json:"assets"`
	PageURL string   `json:"page_url"`
}

// taskEnvelope is the wire form. Body and Head are pointers so an absent key
// can be told apart from an empty fragment.
type taskEnvelope struct {
	TaskType TaskType `json:"task_type"`
	URL      string   `json:"url"`
	Body     *string  `json:"body,omitempty"`
	Head     *string  `json:"head,omitempty"`
	FilePath string   `json:"file_path,omitempty"`
	PageURL  string   `json:"page_url,omitempty"`
}

// DecodeTask parses a JSON task using the task_type discriminator. A parse
// task must carry body and head keys, though either may be empty.
func DecodeTask(data []byte) (Task, error) {
	var env taskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	switch env.TaskType {
	case TaskTypeParse:
		if env.URL == "" {
			return nil, fmt.Errorf("%w: url", ErrMissingField)
		}
		if env.Body == nil {
			return nil, fmt.Errorf("%w: body", ErrMissingField)
		}
		if env.Head == nil {
			return nil, fmt.Errorf("%w: head", ErrMissingField)
		}
		return PageTask{URL: env.URL, Body: *env.Body, Head: *env.Head}, nil
	case TaskTypeAttach:
		if env.URL == "" {
			return nil, fmt.Errorf("%w: url", ErrMissingField)
		}
		if env.FilePath == "" {
			return nil, fmt.Errorf("%w: file_path", ErrMissingField)
		}
		if env.PageURL == "" {
			return nil, fmt.Errorf("%w: page_url", ErrMissingField)
		}
		return AttachTask{URL: env.URL, FilePath: env.FilePath, PageURL: env.PageURL}, nil
	case "":
		return nil, fmt.Errorf("%w: task_type is required", ErrUnknownTaskType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, env.TaskType)
	}
}

// EncodeTask renders task in the same wire format DecodeTask accepts.
func EncodeTask(task Task) ([]byte, error) {
	var env taskEnvelope
	switch t := task.(type) {
	case PageTask:
		body, head := t.Body, t.Head
		env = taskEnvelope{TaskType: TaskTypeParse, URL: t.URL, Body: &body, Head: &head}
	case AttachTask:
		env = taskEnvelope{TaskType: TaskTypeAttach, URL: t.URL, FilePath: t.FilePath, PageURL: t.PageURL}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTaskType, task)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return data, nil
}
