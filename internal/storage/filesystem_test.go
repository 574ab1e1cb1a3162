package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveImage(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	key, err := store.SaveImage(context.Background(), "u1", "image/jpeg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	if !strings.HasPrefix(key, "donations/u1/") {
		t.Fatalf("key = %q, want donations/u1/ prefix", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("key = %q, want .jpg extension", key)
	}

	data, err := os.ReadFile(filepath.Join(store.BasePath(), filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestSaveImageUnsupportedType(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.SaveImage(context.Background(), "u1", "application/pdf", []byte("%PDF")); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("SaveImage() error = %v, want ErrUnsupportedImage", err)
	}
}

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		segment string
		want    string
		wantErr bool
	}{
		{"user-1", "user-1", false},
		{"  user-1  ", "user-1", false},
		{"..", "", true},
		{".", "", true},
		{"a/b", "", true},
		{"a\\b", "", true},
		{"../escape", "", true},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tc := range tests {
		got, err := sanitizeSegment(tc.segment)
		if tc.wantErr {
			if err == nil {
				t.Errorf("sanitizeSegment(%q) expected error, got %q", tc.segment, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sanitizeSegment(%q) error = %v", tc.segment, err)
			continue
		}
		if got != tc.want {
			t.Errorf("sanitizeSegment(%q) = %q, want %q", tc.segment, got, tc.want)
		}
	}
}
