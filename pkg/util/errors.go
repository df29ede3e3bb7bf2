// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import "fmt"

// ErrInterrupt is returned by long-running operators and the pipeline
// executor when a caller-supplied context has been cancelled cooperatively.
// This module never wraps it itself; callers test for it with errors.Is,
// which also matches an ErrInterrupt an operator returned wrapped.
var ErrInterrupt = fmt.Errorf("interrupted")

// InternalError wraps a violated invariant. Encountering one always means a
// bug in this package, never bad input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

func NewInternalError(format string, args ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// NotImplementedError is returned when a catalog entry, logical type or wire
// tag is well-formed but this build does not know how to handle it.
type NotImplementedError struct {
	Msg string
}

func (e *NotImplementedError) Error() string {
	return "not implemented: " + e.Msg
}

func NewNotImplementedError(format string, args ...interface{}) error {
	return &NotImplementedError{Msg: fmt.Sprintf(format, args...)}
}

// IOError wraps a failure from the block manager or the underlying file
// system. Operations that fail with an IOError must be rolled back to their
// pre-call high-water marks by the caller.
type IOError struct {
	Msg string
	Err error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return "io error: " + e.Msg + ": " + e.Err.Error()
	}
	return "io error: " + e.Msg
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func NewIOError(msg string, err error) error {
	return &IOError{Msg: msg, Err: err}
}
