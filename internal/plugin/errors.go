// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"errors"
	"fmt"

	"github.com/holomush/worldviewer/internal/typecatalog"
)

// ErrorKind classifies why a plugin could not be instantiated.
type ErrorKind string

// Instantiation failure kinds, in the order the checks run.
const (
	KindTypeNotFound          ErrorKind = "TYPE_NOT_FOUND"
	KindWrongCapability       ErrorKind = "WRONG_CAPABILITY"
	KindMissingMarker         ErrorKind = "MISSING_MARKER"
	KindNoMatchingConstructor ErrorKind = "NO_MATCHING_CONSTRUCTOR"
	KindConstructionFailed    ErrorKind = "CONSTRUCTION_FAILED"
)

// InstantiationError reports a plugin that is currently unusable. The
// Instantiator returns it wrapped in an oops error coded with its Kind.
type InstantiationError struct {
	Kind     ErrorKind
	TypeName typecatalog.TypeID
	Err      error
}

func (e *InstantiationError) Error() string {
	var msg string
	switch e.Kind {
	case KindTypeNotFound:
		msg = fmt.Sprintf("plugin type %s not found", e.TypeName)
	case KindWrongCapability:
		msg = fmt.Sprintf("plugin type %s does not implement %s", e.TypeName, GeneratorCapability)
	case KindMissingMarker:
		msg = fmt.Sprintf("plugin type %s has no registration marker", e.TypeName)
	case KindNoMatchingConstructor:
		msg = fmt.Sprintf("plugin type %s has no constructor taking a generator URI", e.TypeName)
	case KindConstructionFailed:
		msg = fmt.Sprintf("could not construct plugin type %s", e.TypeName)
	default:
		msg = fmt.Sprintf("plugin type %s is unusable", e.TypeName)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// KindOf returns the instantiation failure kind carried by err, or "" when
// err is not an instantiation failure.
func KindOf(err error) ErrorKind {
	var ie *InstantiationError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
