package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loader converts source files into Documents with normalized text.
// It has no side effects beyond reading the input file.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a document loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// DetectFormat maps a file path's extension to a Format.
// Returns ErrUnsupportedFormat for unknown extensions.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt", ".text":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads the file at path, extracts its text and returns a Document
// with normalized UTF-8 text. The format is detected from the extension.
func (l *Loader) Load(path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw string
	switch format {
	case FormatPDF:
		raw, err = extractPDF(data)
	case FormatDOCX:
		raw, err = extractDOCX(data)
	case FormatText, FormatMarkdown:
		raw = string(bytes.ToValidUTF8(data, []byte("�")))
	}
	if err != nil {
		return nil, err
	}

	text := Normalize(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filepath.Base(path))
	}

	doc := &Document{
		ID:         uuid.New(),
		Filename:   filepath.Base(path),
		Format:     format,
		Size:       info.Size(),
		IngestedAt: time.Now().UTC(),
		Status:     StatusPending,
		Text:       text,
	}

	l.logger.Debug("loaded document",
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", doc.Filename),
		zap.String("format", string(format)),
		zap.Int("text_len", len(text)),
	)

	return doc, nil
}

// extractPDF pulls plain text out of a PDF, page by page.
// Pages that fail to parse are skipped; if no page yields text the
// document is reported as corrupt.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening pdf: %v", ErrCorruptDocument, err)
	}

	var buf strings.Builder
	extracted := false

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if strings.TrimSpace(text) != "" {
			extracted = true
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	if !extracted {
		return "", fmt.Errorf("%w: no extractable text in pdf", ErrCorruptDocument)
	}

	return buf.String(), nil
}
