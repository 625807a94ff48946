package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/docx"
	"github.com/tsawler/tabula/format"
	"github.com/tsawler/tabula/odt"
	pdf "github.com/tsawler/tabula/reader"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

var (
	// ErrUnsupportedType is returned for documents that are neither text nor a known office format.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrEmptyDocument is returned when a document has no bytes or no text.
	ErrEmptyDocument = errors.New("document is empty")
)

// Content types handled by the service.
const (
	MIMEText = "text/plain"
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEODT  = "application/vnd.oasis.opendocument.text"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

// DetectMIME sniffs the content type of data. Office formats are told apart
// by inspecting the archive; everything else uses net/http sniffing.
func DetectMIME(data []byte) string {
	switch format.DetectFromMagic(data) {
	case format.PDF:
		return MIMEPDF
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		f, err := format.DetectFromReader(bytes.NewReader(data), int64(len(data)))
		if err == nil {
			switch f {
			case format.DOCX:
				return MIMEDOCX
			case format.ODT:
				return MIMEODT
			}
		}
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// IsImage reports whether the document must go through OCR.
func IsImage(mimeType string) bool {
	switch baseType(mimeType) {
	case MIMEJPEG, MIMEPNG, MIMEGIF, MIMEWebP:
		return true
	}
	return false
}

// Supports reports whether ReadText can read mimeType.
func Supports(mimeType string) bool {
	switch baseType(mimeType) {
	case MIMEText, MIMEPDF, MIMEDOCX, MIMEODT:
		return true
	}
	return false
}

func baseType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Reader extracts embedded text from non-image documents.
type Reader struct {
	tmpDir string
	log    logrus.FieldLogger
}

// New creates a Reader. Office files are staged in tmpDir ("" for the OS default).
func New(tmpDir string, log logrus.FieldLogger) *Reader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reader{tmpDir: tmpDir, log: log}
}

// ReadText returns the document's own text with full confidence.
func (r *Reader) ReadText(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	if len(doc.Bytes) == 0 {
		return models.ExtractedText{}, ErrEmptyDocument
	}
	if err := ctx.Err(); err != nil {
		return models.ExtractedText{}, err
	}

	mimeType := baseType(doc.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DetectMIME(doc.Bytes)
	}

	var (
		text string
		err  error
	)
	switch mimeType {
	case MIMEText:
		if !utf8.Valid(doc.Bytes) {
			return models.ExtractedText{}, fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedType)
		}
		text = string(doc.Bytes)
	case MIMEPDF:
		text, err = r.withTempFile(doc.Bytes, ".pdf", r.readPDF)
	case MIMEDOCX:
		text, err = r.withTempFile(doc.Bytes, ".docx", readDOCX)
	case MIMEODT:
		text, err = r.withTempFile(doc.Bytes, ".odt", readODT)
	default:
		return models.ExtractedText{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if err != nil {
		return models.ExtractedText{}, err
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return models.ExtractedText{}, ErrEmptyDocument
	}

	r.log.WithFields(logrus.Fields{
		"mime":  mimeType,
		"chars": len(text),
	}).Debug("Read embedded document text")

	return models.ExtractedText{
		Raw:              text,
		SourceConfidence: 100,
		Source:           models.SourceDirectText,
	}, nil
}

// withTempFile stages data on disk for readers that only open paths.
func (r *Reader) withTempFile(data []byte, ext string, read func(path string) (string, error)) (string, error) {
	f, err := os.CreateTemp(r.tmpDir, "doc-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to stage document: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to stage document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to stage document: %w", err)
	}
	return read(path)
}

func (r *Reader) readPDF(path string) (string, error) {
	pr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer pr.Close()

	text, warnings, err := tabula.FromReader(pr).Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}
	for _, w := range warnings {
		r.log.WithField("file", filepath.Base(path)).Debugf("PDF extraction warning: %v", w)
	}
	return text, nil
}

func readDOCX(path string) (string, error) {
	dr, err := docx.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer dr.Close()
	return dr.Text()
}

func readODT(path string) (string, error) {
	or, err := odt.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open ODT: %w", err)
	}
	defer or.Close()
	return or.Text()
}
