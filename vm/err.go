package vm

import (
	"errors"

	"github.com/ezrec/aqa32/isa"
	"github.com/ezrec/aqa32/translate"
)

var f = translate.From

var (
	ErrHalted       = errors.New(f("step after halt"))
	ErrOpcodeDecode = errors.New(f("opcode decode"))
	ErrAddressMode  = errors.New(f("address mode invalid"))
	ErrInput        = errors.New(f("input unavailable"))
)

// ErrDeviceUnsupported is an OUT to an unknown device selector.
type ErrDeviceUnsupported isa.Device

func (err ErrDeviceUnsupported) Error() string {
	return f("output to device %d not supported", uint32(err))
}

// ErrCharacterInvalid is an OUT to DEV_CHAR of a value that is not a Unicode code point.
type ErrCharacterInvalid uint32

func (err ErrCharacterInvalid) Error() string {
	return f("value 0x%x is not a character", uint32(err))
}

// ErrAddressRange is a memory address or register index out of bounds.
type ErrAddressRange struct {
	What  string // "memory" or "register"
	Index uint32
}

func (err ErrAddressRange) Error() string {
	return f("%v index %d out of range", err.What, err.Index)
}

// ErrImageSize is an image larger than memory.
type ErrImageSize int

func (err ErrImageSize) Error() string {
	return f("image of %d words does not fit in memory", int(err))
}

// ErrExecute locates a failed step.
type ErrExecute struct {
	Address uint32
	Word    isa.Word
	Err     error
}

func (err *ErrExecute) Error() string {
	return f("address %d word 0x%08x %v", err.Address, uint32(err.Word), err.Err)
}

func (err *ErrExecute) Unwrap() error {
	return err.Err
}
