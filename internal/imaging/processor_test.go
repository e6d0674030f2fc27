// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testDataURL(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSaveDataURL(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	result, err := p.SaveDataURL(testDataURL(t, 100, 50))
	if err != nil {
		t.Fatalf("SaveDataURL: %v", err)
	}

	if result.Width != 100 || result.Height != 50 {
		t.Errorf("dimensions = %dx%d, want 100x50", result.Width, result.Height)
	}
	for _, rel := range []string{result.Path, result.ThumbPath} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("stored file %s missing: %v", rel, err)
		}
	}
	if filepath.Ext(result.Path) != ".png" {
		t.Errorf("path = %q, want .png extension", result.Path)
	}
}

func TestSaveDataURLResizesLargeImages(t *testing.T) {
	p := NewProcessor(t.TempDir())

	result, err := p.SaveDataURL(testDataURL(t, 2000, 1000))
	if err != nil {
		t.Fatalf("SaveDataURL: %v", err)
	}
	if result.Width > maxImageWidth || result.Height > maxImageWidth {
		t.Errorf("dimensions = %dx%d, want bounded by %d", result.Width, result.Height, maxImageWidth)
	}
}

func TestSaveDataURLRejectsGarbage(t *testing.T) {
	p := NewProcessor(t.TempDir())

	for _, input := range []string{
		"",
		"not a data url",
		"data:image/png,unencoded",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not an image")),
	} {
		if _, err := p.SaveDataURL(input); err == nil {
			t.Errorf("SaveDataURL(%.30q) accepted invalid input", input)
		}
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	result, err := p.SaveDataURL(testDataURL(t, 10, 10))
	if err != nil {
		t.Fatalf("SaveDataURL: %v", err)
	}

	if err := p.Delete(result.Path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, result.Path)); !os.IsNotExist(err) {
		t.Error("image still present after Delete")
	}
	if _, err := os.Stat(filepath.Join(dir, result.ThumbPath)); !os.IsNotExist(err) {
		t.Error("thumbnail still present after Delete")
	}

	// Deleting again is a no-op.
	if err := p.Delete(result.Path); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if err := p.Delete(""); err != nil {
		t.Errorf("Delete(empty): %v", err)
	}
}
