// Package extract reads uploaded files from disk and turns them into plain
// text for the ingestion pipeline.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooLarge          = errors.New("file exceeds upload size limit")
)

// FileReader extracts text from an allowlisted set of formats. Plain-text
// formats pass through verbatim so the content fingerprint stays stable;
// PDFs are flattened to their plain-text stream.
type FileReader struct {
	maxBytes int64
}

func NewFileReader(maxUploadMB int) *FileReader {
	return &FileReader{maxBytes: int64(maxUploadMB) * 1024 * 1024}
}

// Read returns the base filename and the extracted text of the file at path.
func (r *FileReader) Read(path string) (string, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", fmt.Errorf("stat upload: %w", err)
	}
	if info.Size() > r.maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("read upload: %w", err)
		}
		return name, string(raw), nil
	case ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return "", "", fmt.Errorf("read pdf: %w", err)
		}
		return name, text, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func readPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stream, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return "", err
	}
	return buf.String(), nil
}
