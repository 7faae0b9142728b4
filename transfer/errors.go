package transfer

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is. Precondition errors returned by Run all
// satisfy ErrConfiguration; TypeMismatchError and NotEditableError also
// satisfy their own sentinel.
var (
	ErrConfiguration = errors.New("transfer: configuration error")
	ErrTypeMismatch  = errors.New("transfer: field type mismatch")
	ErrNotEditable   = errors.New("transfer: target layer is not editable")

	// Per-feature conditions. They are recorded in the log and never
	// abort a run.
	ErrNoMatch        = errors.New("no match found")
	ErrAmbiguousMatch = errors.New("multiple matches found")
	ErrWriteRejected  = errors.New("write rejected by host")
)

// ConfigurationError reports a missing or unknown layer, field or rule.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// TypeMismatchError reports source and target fields with different type tags.
type TypeMismatchError struct {
	SourceField string
	SourceType  FieldType
	TargetField string
	TargetType  FieldType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field type mismatch: source %q is %s, target %q is %s",
		e.SourceField, e.SourceType, e.TargetField, e.TargetType)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch || target == ErrConfiguration
}

// NotEditableError reports a target layer that is not in editing mode.
type NotEditableError struct {
	Layer string
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("editing is not enabled for target layer %q", e.Layer)
}

func (e *NotEditableError) Is(target error) bool {
	return target == ErrNotEditable || target == ErrConfiguration
}
