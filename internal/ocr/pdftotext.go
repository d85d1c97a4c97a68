package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text with the poppler pdftotext CLI. Layout mode keeps
// coordinate strings on one line, and the default page breaks (form feeds)
// are what SplitPages keys on.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. An empty binPath resolves
// "pdftotext" from PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext over the PDF and returns its stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", "-enc", "UTF-8", "-q", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, detail)
	}
	return stdout.String(), nil
}
