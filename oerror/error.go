package oerror

import "fmt"

type DoorError struct {
	Err string
}

func NewDoorError(err string) *DoorError {
	return &DoorError{Err: err}
}

// New formats an error message the same way fmt.Sprintf does and wraps it in a DoorError.
func New(format string, args ...any) *DoorError {
	return &DoorError{Err: fmt.Sprintf(format, args...)}
}

func (e *DoorError) Error() string {
	return e.Err
}
