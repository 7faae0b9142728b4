package utils

import (
	"fmt"
	"io"
	"net/http"
)

// maxMultipartMemory is the part of a multipart body kept in memory; the
// rest spills to temporary files.
const maxMultipartMemory = 64 << 20

// MultipartResult holds uploaded files and plain form values by key.
type MultipartResult struct {
	Files  map[string]string
	Values map[string]string
}

// File returns the uploaded file stored under key.
func (m MultipartResult) File(key string) (string, bool) {
	content, ok := m.Files[key]
	return content, ok && content != ""
}

// Value returns the form value under key, or fallback when absent.
func (m MultipartResult) Value(key, fallback string) string {
	if v, ok := m.Values[key]; ok && v != "" {
		return v
	}
	return fallback
}

// ReadMultiPartForm reads the first file of each of fileKeys and the first
// value of every form field.
func ReadMultiPartForm(r *http.Request, fileKeys ...string) (MultipartResult, error) {
	result := MultipartResult{
		Files:  make(map[string]string),
		Values: make(map[string]string),
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return result, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	for key, value := range r.MultipartForm.Value {
		if len(value) > 0 {
			result.Values[key] = value[0]
		}
	}

	for _, fileKey := range fileKeys {
		headers := r.MultipartForm.File[fileKey]
		if len(headers) == 0 {
			continue
		}
		file, err := headers[0].Open()
		if err != nil {
			return result, fmt.Errorf("failed to open uploaded file %q: %w", fileKey, err)
		}
		fullFile, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return result, fmt.Errorf("failed to read uploaded file %q: %w", fileKey, err)
		}
		result.Files[fileKey] = string(fullFile)
	}

	return result, nil
}
