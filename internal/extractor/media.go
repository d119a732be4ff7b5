package extractor

import (
	"bytes"
	"fmt"

	"propveris/internal/domain"
)

var (
	pdfMagic  = []byte("%PDF-")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// SniffMediaKind determines the media kind from the payload's magic
// bytes. Unrecognized payloads fail with domain.ErrUnsupportedMedia.
func SniffMediaKind(data []byte) (domain.MediaKind, error) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return domain.MediaPDF, nil
	case bytes.HasPrefix(data, jpegMagic):
		return domain.MediaJPG, nil
	case bytes.HasPrefix(data, pngMagic):
		return domain.MediaPNG, nil
	default:
		return "", fmt.Errorf("%w: unrecognized payload", domain.ErrUnsupportedMedia)
	}
}

// ValidateMedia checks the declared content type against the allow list
// and against the payload's actual magic bytes. It must run before any
// call to the extraction model: an unsupported document is rejected
// without spending a model invocation on it.
func ValidateMedia(data []byte, contentType string) (domain.MediaKind, error) {
	declared, ok := domain.AllowedContentTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: content type %q", domain.ErrUnsupportedMedia, contentType)
	}
	sniffed, err := SniffMediaKind(data)
	if err != nil {
		return "", err
	}
	if sniffed != declared {
		return "", fmt.Errorf("%w: declared %s but payload is %s", domain.ErrUnsupportedMedia, declared, sniffed)
	}
	return declared, nil
}

// CountPDFPages returns the number of pages in a PDF payload by
// counting page object markers. Returns at least 1 for any payload that
// carries the PDF magic, since a malformed page tree should still get
// one extraction attempt rather than zero.
func CountPDFPages(data []byte) int {
	n := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	if n < 1 {
		// Some writers omit the space after /Type.
		n = bytes.Count(data, []byte("/Type/Page")) - bytes.Count(data, []byte("/Type/Pages"))
	}
	if n < 1 {
		return 1
	}
	return n
}
