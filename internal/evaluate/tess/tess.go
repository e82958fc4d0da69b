//go:build cgo

// Package tess recognises line images with the Tesseract library through
// gosseract.
package tess

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Recognizer runs one gosseract client. It is not safe for concurrent use.
type Recognizer struct {
	client *gosseract.Client
}

// New loads lang from tessdataDir, typically <output_dir>/<new_lang>.traineddata.
func New(tessdataDir, lang string) (*Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetTessdataPrefix(tessdataDir); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set tessdata path: %w", err)
	}
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return &Recognizer{client: client}, nil
}

// Recognize returns the text of a single line image. The image is converted
// to grayscale first, matching how training lines were rendered.
func (r *Recognizer) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(img), imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Close releases the Tesseract client.
func (r *Recognizer) Close() error {
	return r.client.Close()
}
