// Package pdf extracts text from PDF files with the pdftotext tool from
// poppler.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ToolName is the external binary used for extraction.
const ToolName = "pdftotext"

var (
	// ErrPDFToolNotFound indicates pdftotext is not installed.
	ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

	// ErrMalformedPDF indicates content without a PDF header.
	ErrMalformedPDF = errors.New("malformed PDF")
)

var pdfMagic = []byte("%PDF-")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, err
}

// Normaliser handles PDF documents.
type Normaliser struct {
	fetcher driven.ContentFetcher
	runner  CommandRunner
}

// New creates a PDF normaliser that runs pdftotext from PATH.
func New(fetcher driven.ContentFetcher) *Normaliser {
	return NewWithRunner(fetcher, execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(fetcher driven.ContentFetcher, runner CommandRunner) *Normaliser {
	return &Normaliser{fetcher: fetcher, runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Normalise downloads the PDF and extracts its text layer.
func (n *Normaliser) Normalise(ctx context.Context, doc domain.SourceDocument) (string, error) {
	data, err := n.fetcher.Download(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.ID, err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", ErrMalformedPDF
	}

	tmp, err := os.CreateTemp("", "docsync-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, ToolName, "-enc", "UTF-8", "-q", tmp.Name(), "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return "", err
		}
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	// pdftotext separates pages with form feeds.
	return string(bytes.ReplaceAll(out, []byte{'\f'}, []byte("\n\n"))), nil
}

// CheckAvailable reports whether pdftotext can be found in PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(ToolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific install hints for pdftotext.
func InstallInstructions() string {
	return `pdftotext is required for PDF extraction.

Install poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils
  Alpine:        apk add poppler-utils`
}
