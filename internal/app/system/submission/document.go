package submission

import (
	"errors"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxDocumentBytes is the idea document size cap (5 MiB).
const DefaultMaxDocumentBytes int64 = 5 * 1024 * 1024

// Accepted idea document content types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Document is the uploaded idea document. Size is the length declared by
// the multipart part header; Body is read only after every cheap check
// has passed.
type Document struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// mediaType returns the lower-cased content type without parameters.
func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// IsAcceptedType reports whether ct is PDF, DOC or DOCX.
func IsAcceptedType(ct string) bool {
	switch mediaType(ct) {
	case MIMEPDF, MIMEDoc, MIMEDocx:
		return true
	}
	return false
}

// SpoolPrefix starts the name of every temp file spool creates.
const SpoolPrefix = "idea-"

// errTooLarge is returned by spool when the body is longer than allowed.
var errTooLarge = errors.New("document exceeds size limit")

// spool copies body into a new temp file in dir, reading at most max
// bytes. The caller owns the returned file and must remove it.
func spool(dir string, body io.Reader, max int64) (*os.File, int64, error) {
	f, err := os.CreateTemp(dir, SpoolPrefix+"*")
	if err != nil {
		return nil, 0, err
	}
	n, err := io.Copy(f, io.LimitReader(body, max+1))
	if err == nil && n > max {
		err = errTooLarge
	}
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, 0, err
	}
	return f, n, nil
}

// countPages returns the page count of a PDF, or false when the file
// cannot be parsed.
func countPages(r io.ReaderAt, size int64) (pages int, ok bool) {
	defer func() {
		if recover() != nil {
			pages, ok = 0, false
		}
	}()
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, false
	}
	return pr.NumPage(), true
}
