// Package sizerr defines the error kinds the attribution pipeline can
// raise, matching the disposition table of the abort/warn design:
// ConfigError and IntegrityError and ToolFailure abort the run,
// WarningOnly and DataGap are logged and counted but never abort.
package sizerr

import (
	"errors"
	"fmt"

	"github.com/yue/binsizer/pkg/utils"
)

// ConfigError signals that the output directory or tool prefix could not
// be located or verified.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return "config error: " + e.Message }

func NewConfigError(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IntegrityError signals that two independently-produced artifacts
// disagree in a way that cannot be reconciled: a map file and an ELF
// disagreeing on a section size, or a ninja output appearing twice with
// different inputs.
type IntegrityError struct {
	Message string
}

func (e *IntegrityError) Error() string { return "integrity error: " + e.Message }

func NewIntegrityError(format string, args ...any) error {
	return &IntegrityError{Message: fmt.Sprintf(format, args...)}
}

// ToolFailure wraps a non-zero exit from an external tool (nm, c++filt,
// readelf), including the command line for diagnosis.
type ToolFailure struct {
	Command []string
	Err     error
}

func (e *ToolFailure) Error() string {
	return fmt.Sprintf("tool failure running [%s]: %v", utils.FormatSlice(e.Command, " "), e.Err)
}

func (e *ToolFailure) Unwrap() error { return e.Err }

func NewToolFailure(command []string, err error) error {
	return &ToolFailure{Command: command, Err: err}
}

// IsAbort reports whether err is one of the three kinds that must abort
// the run (as opposed to WarningOnly/DataGap, which are never returned
// as errors - see Diagnostics).
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	var cfg *ConfigError
	var integ *IntegrityError
	var tool *ToolFailure
	return errors.As(err, &cfg) || errors.As(err, &integ) || errors.As(err, &tool)
}
