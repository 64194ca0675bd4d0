package model

// ErrorKind classifies a TaskError for the transport layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalid
	KindNotFound
	KindForbidden
)

// TaskError represents a domain error for tasks.
type TaskError struct {
	Kind    ErrorKind
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

var (
	ErrInvalidTaskID       = TaskError{Kind: KindInvalid, Message: "Task id not valid"}
	ErrTitleRequired       = TaskError{Kind: KindInvalid, Message: "Title of task not found"}
	ErrDescriptionRequired = TaskError{Kind: KindInvalid, Message: "Description of task not found"}
	ErrNoUpdateFields      = TaskError{Kind: KindInvalid, Message: "At least one field (title, description, status) must be provided"}
	ErrInvalidStatus       = TaskError{Kind: KindInvalid, Message: "Status must be one of Pending, In Progress, Completed"}
	ErrInvalidPriority     = TaskError{Kind: KindInvalid, Message: "Priority must be one of Low, Medium, High"}

	// The owner-scoped lookup and the by-id lookup report absence differently.
	ErrTaskNotFound   = TaskError{Kind: KindNotFound, Message: "No task found.."}
	ErrTaskIDNotFound = TaskError{Kind: KindNotFound, Message: "Task with given id not found"}

	ErrUpdateForbidden = TaskError{Kind: KindForbidden, Message: "You can't update task of another user"}
	ErrDeleteForbidden = TaskError{Kind: KindForbidden, Message: "You can't delete task of another user"}

	ErrInternal = TaskError{Kind: KindInternal, Message: "Internal Server Error"}
)
