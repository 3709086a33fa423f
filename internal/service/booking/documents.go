package booking

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
)

const (
	DocumentTypePDF      = "PDF"
	DocumentTypeImage    = "Image"
	DocumentTypeDocument = "Document"
)

// Upload is one attachment as received. Head holds the leading bytes of
// the file when the client sent content; it is only used for sniffing.
type Upload struct {
	Name     string
	Size     int64
	MIMEType string
	Head     []byte
}

// FormatSize renders bytes as kilobytes with two decimals.
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}

// Classify maps a MIME type to the document label shown to doctors.
func Classify(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "pdf"):
		return DocumentTypePDF
	case strings.Contains(mimeType, "image"):
		return DocumentTypeImage
	default:
		return DocumentTypeDocument
	}
}

// DetectMIME prefers the declared type and falls back to sniffing head.
func DetectMIME(declared string, head []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if len(head) == 0 {
		return ""
	}
	return mimetype.Detect(head).String()
}

// Describe turns an upload into stored metadata. Content is dropped.
func Describe(u Upload) model.Document {
	return model.Document{
		Name: u.Name,
		Size: FormatSize(u.Size),
		Type: Classify(DetectMIME(u.MIMEType, u.Head)),
	}
}
