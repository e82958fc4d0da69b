//go:build !cgo

// Package tess recognises line images with the Tesseract library through
// gosseract. Without cgo it is unavailable.
package tess

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the binary was built without cgo.
var ErrUnavailable = errors.New("evaluation requires a cgo build with libtesseract")

// Recognizer is a placeholder in builds without cgo.
type Recognizer struct{}

// New always fails without cgo.
func New(string, string) (*Recognizer, error) {
	return nil, ErrUnavailable
}

// Recognize always fails without cgo.
func (r *Recognizer) Recognize(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// Close is a no-op.
func (r *Recognizer) Close() error {
	return nil
}
