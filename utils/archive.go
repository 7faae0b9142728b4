package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ArchiveFile is one entry of a zip archive.
type ArchiveFile struct {
	Name    string
	Content []byte
}

// GenerateZip writes files into a zip archive in the order given.
func GenerateZip(files []ArchiveFile) ([]byte, error) {
	var zipBuffer bytes.Buffer
	zipWriter := zip.NewWriter(&zipBuffer)

	for _, file := range files {
		entry, err := zipWriter.Create(file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s in zip: %w", file.Name, err)
		}
		if _, err := entry.Write(file.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s to zip: %w", file.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return zipBuffer.Bytes(), nil
}
