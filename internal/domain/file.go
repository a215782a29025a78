package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is an in-memory file to be uploaded as a multipart part.
type File struct {
	Name string
	Data []byte
}

// NewFile creates a File with the given name and content.
func NewFile(name string, data []byte) *File {
	return &File{
		Name: name,
		Data: data,
	}
}

// ReadFile loads a file from disk. The base name of path becomes the file name.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return NewFile(filepath.Base(path), data), nil
}

// Ext returns the lowercase extension of the file name, including the dot.
func (f *File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Size returns the size of the file content in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// Download is the raw result of fetching an uploaded file.
type Download struct {
	Data        []byte
	ContentType string
}

// Size returns the size of the downloaded content in bytes.
func (d Download) Size() int64 {
	return int64(len(d.Data))
}
