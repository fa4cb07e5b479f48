package parser

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// Parser extracts plain text from document bytes. Paragraphs are separated by a blank line.
type Parser struct{}

func New() *Parser { return &Parser{} }

// SupportedExtensions lists the file extensions ExtractText understands.
var SupportedExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".xltx", ".md", ".markdown", ".txt"}

// IsSupported reports whether fileName has an extension ExtractText can read.
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ExtractText dispatches on the extension of fileName.
func (p *Parser) ExtractText(fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file %s", models.ErrInvalidInput, fileName)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	log.Debug().Str("file", fileName).Str("ext", ext).Int("bytes", len(data)).Msg("Extracting text")

	switch ext {
	case ".pdf":
		return parsePDF(data)
	case ".docx":
		return parseDOCX(data)
	case ".pptx":
		return parsePPTX(data)
	case ".xlsx":
		return parseXLSX(data)
	case ".xlsm", ".xltx":
		return parseExcel(data)
	case ".md", ".markdown":
		return parseMarkdown(data)
	case ".txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: unsupported file format: %s", models.ErrInvalidInput, ext)
	}
}

// DecodeBase64PDF decodes a base64 payload, accepting an optional PDF data URL prefix.
func DecodeBase64PDF(payload string) ([]byte, error) {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(payload), models.DataURLPrefixPDF))
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", models.ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf payload", models.ErrInvalidInput)
	}
	return data, nil
}

// joinBlocks joins non-empty trimmed blocks with a paragraph separator
func joinBlocks(blocks []string) string {
	kept := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, models.ParagraphSeparator)
}

// renderTable renders rows as a marked text block, cells separated by " | "
func renderTable(title string, rows [][]string) string {
	var text strings.Builder
	text.WriteString("[Table")
	if title != "" {
		text.WriteString(": " + title)
	}
	text.WriteString("]\n")
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		text.WriteString(strings.Join(row, " | "))
		text.WriteString("\n")
	}
	return text.String()
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
