package content

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

var allowedExts = map[string]bool{
	"txt":  true,
	"md":   true,
	"pdf":  true,
	"doc":  true,
	"docx": true,
}

func ExtAllowed(ext string) bool { return allowedExts[ext] }

// ExtractText pulls plain text out of an uploaded document. Legacy .doc files
// cannot be parsed; callers fall back to topic-based generation for them.
func ExtractText(data []byte, ext string) (string, error) {
	switch ext {
	case "txt", "md":
		return string(data), nil
	case "pdf":
		return extractPDF(data)
	case "docx":
		return extractDocx(data)
	}
	return "", errors.Errorf("cannot extract text from .%s files", ext)
}

func extractPDF(data []byte) (string, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "opening pdf")
	}
	txt, err := rdr.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	var buf bytes.Buffer
	if _, err = io.Copy(&buf, txt); err != nil {
		return "", errors.Wrap(err, "copying pdf text")
	}
	return buf.String(), nil
}

// extractDocx reads word/document.xml from the docx archive and keeps only
// the character data, inserting newlines at paragraph boundaries.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "opening docx archive")
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Wrap(err, "opening document.xml")
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errors.New("docx has no document.xml")
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "decoding document.xml")
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}
