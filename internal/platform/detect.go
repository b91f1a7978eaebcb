package platform

import "runtime"

// OS represents an operating system coderev knows how to read Claude
// credentials on.
type OS string

const (
	MacOS   OS = "darwin"
	Linux   OS = "linux"
	Unknown OS = "unknown"
)

// Detect returns the current operating system.
func Detect() OS {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// IsSupported returns true if the current OS has a credential source.
func IsSupported() bool {
	o := Detect()
	return o == MacOS || o == Linux
}
