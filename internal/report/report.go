/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package report carries per-item failures of the daily jobs.
package report

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// GenerationError is a recovered failure for one hour or one feature combo.
type GenerationError struct {
	DJ          string
	Hour        *int
	FeatureType string
	Stage       string
	Err         error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString(e.DJ)
	if e.Hour != nil {
		fmt.Fprintf(&b, " hour %d", *e.Hour)
	}
	if e.FeatureType != "" {
		fmt.Fprintf(&b, " %s", e.FeatureType)
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " (%s)", e.Stage)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// PanicError is a panic converted into an error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Protect runs fn and converts a panic into a *PanicError.
func Protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Hour returns a pointer to h for GenerationError.Hour.
func Hour(h int) *int {
	return &h
}
