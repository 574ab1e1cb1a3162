package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestBuild(t *testing.T) {
	data := Build([]File{
		{Name: "profile.json", Data: []byte(`{"id":"u1"}`)},
		{Name: "donations.json", Data: []byte(`[]`)},
	})
	if len(data) == 0 {
		t.Fatal("Build() returned empty archive")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if string(content) != `{"id":"u1"}` {
		t.Fatalf("entry content = %q", content)
	}
}

func TestBuildEmpty(t *testing.T) {
	data := Build(nil)
	if _, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("empty archive is not readable: %v", err)
	}
}
