package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX pulls text out of a .docx file. A .docx archive is a ZIP
// containing word/document.xml; paragraph text lives in w:p > w:r > w:t.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening docx archive: %v", ErrCorruptDocument, err)
	}

	var documentXML []byte
	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: opening document.xml: %v", ErrCorruptDocument, err)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: reading document.xml: %v", ErrCorruptDocument, err)
		}
		break
	}

	if documentXML == nil {
		return "", fmt.Errorf("%w: docx has no word/document.xml", ErrCorruptDocument)
	}

	text, err := docxText(documentXML)
	if err != nil {
		return "", fmt.Errorf("%w: parsing document.xml: %v", ErrCorruptDocument, err)
	}

	return text, nil
}

// docxText extracts paragraph text from WordprocessingML.
func docxText(xmlData []byte) (string, error) {
	type docxTextRun struct {
		Content string `xml:",chardata"`
	}
	type docxRun struct {
		Text []docxTextRun `xml:"t"`
	}
	type docxParagraph struct {
		Runs []docxRun `xml:"r"`
	}
	type docxBody struct {
		Paragraphs []docxParagraph `xml:"p"`
	}
	type docxDocument struct {
		Body docxBody `xml:"body"`
	}

	var doc docxDocument
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return "", err
	}

	var buf strings.Builder
	for _, para := range doc.Body.Paragraphs {
		for _, run := range para.Runs {
			for _, t := range run.Text {
				buf.WriteString(t.Content)
			}
		}
		buf.WriteString("\n\n")
	}

	return buf.String(), nil
}
