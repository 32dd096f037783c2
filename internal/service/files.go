package service

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// File is a picked or dropped file. ContentType is the type declared by the
// client, which gates whether the file is read at all.
type File interface {
	Name() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// supportedTypes are the declared media types accepted for ingestion.
var supportedTypes = map[string]bool{
	"application/geo+json": true,
	"application/json":     true,
}

// Supported reports whether a declared content type may be ingested.
// Media type parameters such as charset are ignored.
func Supported(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return supportedTypes[mt]
}

type multipartFile struct {
	h *multipart.FileHeader
}

// MultipartFile adapts an uploaded form file.
func MultipartFile(h *multipart.FileHeader) File {
	return multipartFile{h: h}
}

func (f multipartFile) Name() string        { return f.h.Filename }
func (f multipartFile) ContentType() string { return f.h.Header.Get("Content-Type") }

func (f multipartFile) Open() (io.ReadCloser, error) {
	return f.h.Open()
}

type localFile struct {
	path string
}

// LocalFile adapts a file on disk. Its content type is derived from the
// extension, with .geojson mapped to application/geo+json.
func LocalFile(path string) File {
	return localFile{path: path}
}

func (f localFile) Name() string { return filepath.Base(f.path) }

func (f localFile) ContentType() string {
	ext := strings.ToLower(filepath.Ext(f.path))
	if ext == ".geojson" {
		return "application/geo+json"
	}
	return mime.TypeByExtension(ext)
}

func (f localFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type memFile struct {
	name, contentType string
	data              []byte
}

// MemFile is an in-memory File.
func MemFile(name, contentType string, data []byte) File {
	return memFile{name: name, contentType: contentType, data: data}
}

func (f memFile) Name() string        { return f.name }
func (f memFile) ContentType() string { return f.contentType }

func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func readFile(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
