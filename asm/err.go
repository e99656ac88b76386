package asm

import "fmt"

// UnknownLabelError reports a call or jump target that was never
// bound with Label.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("label %q missing", e.Label)
}

// DuplicateLabelError reports a label bound more than once.
type DuplicateLabelError struct {
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("label %q duplicated", e.Label)
}
