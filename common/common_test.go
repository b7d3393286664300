package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestStringToIDStable(t *testing.T) {
	if StringToID("Transform") != StringToID("Transform") {
		t.Fatal("same name hashed to different keys")
	}
	if StringToID("Transform") == StringToID("transform") {
		t.Fatal("names differing in case hashed to the same key")
	}
	// FNV-1a 64-bit offset basis.
	if got := StringToID(""); got != 0xcbf29ce484222325 {
		t.Fatalf("StringToID(\"\") = %#x, want offset basis", got)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Fatalf("Coalesce = %d, want 3", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Fatalf("Coalesce = %q, want empty", got)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{-1, 0},
		{0.25, 0.25},
		{7, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32{}) != nil {
		t.Fatal("empty slice should produce nil")
	}
	b := SliceToBytes([]uint32{1, 2})
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want uint64
	}{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{20, 16, 32},
		{6, 4, 8},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
	if got := AlignUp(uint32(5), 4); got != 8 {
		t.Errorf("AlignUp(uint32) = %d, want 8", got)
	}
}

func TestDecodeTexture(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(1, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	data, err := DecodeTexture(&buf)
	if err != nil {
		t.Fatalf("DecodeTexture: %v", err)
	}
	if data.Width != 2 || data.Height != 3 {
		t.Fatalf("size = %dx%d, want 2x3", data.Width, data.Height)
	}
	if len(data.Pixels) != 2*3*4 {
		t.Fatalf("len(Pixels) = %d, want 24", len(data.Pixels))
	}
	last := data.Pixels[len(data.Pixels)-4:]
	if last[0] != 10 || last[1] != 20 || last[2] != 30 || last[3] != 255 {
		t.Fatalf("last pixel = %v", last)
	}
}

func TestDecodeTextureRejectsGarbage(t *testing.T) {
	if _, err := DecodeTexture(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
