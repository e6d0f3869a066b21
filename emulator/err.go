package emulator

import (
	"github.com/ezrec/aqa32/translate"
)

var f = translate.From

// ErrRuntime indicates the source location of a runtime error.
type ErrRuntime struct {
	Index int // Zero-based source line index, or -1 if unknown.
	Err   error
}

func (err *ErrRuntime) Error() string {
	if err.Index < 0 {
		return f("runtime %v", err.Err)
	}
	return f("line %d %v", err.Index+1, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
