package isa

// Device is an OUT device selector.
type Device uint32

const (
	DEV_UINT = Device(4) // Unsigned decimal text.
	DEV_CHAR = Device(7) // Single character.
)

// Valid returns true if the device is supported.
func (dev Device) Valid() bool {
	return dev == DEV_UINT || dev == DEV_CHAR
}

// String returns the symbolic device name.
func (dev Device) String() string {
	switch dev {
	case DEV_UINT:
		return "DEV_UINT"
	case DEV_CHAR:
		return "DEV_CHAR"
	}
	return "DEV_UNKNOWN"
}
