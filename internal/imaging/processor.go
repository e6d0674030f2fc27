// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging stores event images submitted as base64 data URLs. Images
// are decoded, auto-rotated from EXIF, bounded in size and written under the
// uploads directory with generated names.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

const (
	// MaxImageBytes bounds the decoded payload of a data URL.
	MaxImageBytes = 10 << 20 // 10 MiB

	// maxImageWidth is the longest edge stored for event images.
	maxImageWidth = 1600

	// thumbWidth is the longest edge of the generated thumbnail.
	thumbWidth = 400
)

// Result describes a stored event image.
type Result struct {
	// Path is the image location relative to the uploads directory.
	Path string

	// ThumbPath is the thumbnail location relative to the uploads directory.
	ThumbPath string

	Width  int
	Height int
}

// Processor handles image processing operations using pure Go libraries.
type Processor struct {
	uploadDir string
}

// NewProcessor creates a new image processor writing under uploadDir.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{uploadDir: uploadDir}
}

// SaveDataURL decodes a base64 data URL, normalizes the image and stores it
// with its thumbnail. Returns paths relative to the uploads directory.
func (p *Processor) SaveDataURL(dataURL string) (*Result, error) {
	data, format, err := decodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	if b := img.Bounds(); b.Dx() > maxImageWidth || b.Dy() > maxImageWidth {
		img = imaging.Fit(img, maxImageWidth, maxImageWidth, imaging.Lanczos)
	}
	thumb := imaging.Fit(img, thumbWidth, thumbWidth, imaging.Lanczos)

	name := uuid.New().String() + extForFormat(format)

	bounds := img.Bounds()
	result := &Result{
		Path:      filepath.Join("events", name),
		ThumbPath: filepath.Join("thumbs", name),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}

	if err := p.saveImage(result.Path, img, format); err != nil {
		return nil, err
	}
	if err := p.saveImage(result.ThumbPath, thumb, format); err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes a stored image and its thumbnail. Missing files are not
// an error.
func (p *Processor) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}

	name := filepath.Base(relPath)
	for _, rel := range []string{filepath.Join("events", name), filepath.Join("thumbs", name)} {
		if err := os.Remove(filepath.Join(p.uploadDir, rel)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting %s: %w", rel, err)
		}
	}
	return nil
}

// decodeDataURL parses a "data:image/...;base64," URL and returns the raw
// bytes plus the detected format.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(dataURL, prefix) {
		return nil, "", fmt.Errorf("not a data URL")
	}

	meta, payload, found := strings.Cut(dataURL[len(prefix):], ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("data URL must be base64 encoded")
	}

	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload))
	data, err := io.ReadAll(io.LimitReader(decoder, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("decoding base64 payload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, "", fmt.Errorf("unsupported image format")
	}

	return data, format, nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// extForFormat picks the stored file extension. WebP is re-encoded as JPEG
// since pure Go has no WebP encoder.
func extForFormat(format string) string {
	switch format {
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// saveImage encodes and writes an image to a path relative to uploadDir.
func (p *Processor) saveImage(relPath string, img image.Image, format string) error {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encoding png: %w", err)
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return fmt.Errorf("encoding gif: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("encoding jpeg: %w", err)
		}
	}

	target := filepath.Join(p.uploadDir, relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	return nil
}
