package archive

import (
	"archive/zip"
	"bytes"
)

// File is one entry of a zip bundle.
type File struct {
	Name string
	Data []byte
}

// Build packs the files into an in-memory zip archive. Entries that fail to
// be created are skipped; a write failure aborts and returns nil.
func Build(files []File) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			continue
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
