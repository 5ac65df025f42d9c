package upload

import (
	"net/http"
	"path/filepath"
)

// File is an image selected by the user for an image search.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// New creates a File, sniffing the content type when none is given.
func New(name, contentType string, data []byte) File {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return File{Name: filepath.Base(name), ContentType: contentType, Data: data}
}

// Empty reports whether the file carries no content.
func (f File) Empty() bool { return len(f.Data) == 0 }
