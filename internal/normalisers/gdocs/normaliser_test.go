package gdocs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

// exportFetcher records export calls.
type exportFetcher struct {
	data     []byte
	err      error
	gotMIME  string
	exported int
}

func (f *exportFetcher) Download(context.Context, domain.SourceDocument) ([]byte, error) {
	return nil, errors.New("download not expected")
}

func (f *exportFetcher) Export(_ context.Context, _ domain.SourceDocument, mimeType string) ([]byte, error) {
	f.exported++
	f.gotMIME = mimeType
	return f.data, f.err
}

func TestSupportedMIMETypes(t *testing.T) {
	types := New(nil).SupportedMIMETypes()
	assert.ElementsMatch(t, []string{MimeTypeDocument, MimeTypePresentation, MimeTypeSpreadsheet}, types)
}

func TestNormalise_ExportFormats(t *testing.T) {
	tests := []struct {
		contentType string
		wantMIME    string
	}{
		{MimeTypeDocument, "text/plain"},
		{MimeTypePresentation, "text/plain"},
		{MimeTypeSpreadsheet, "text/csv"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			f := &exportFetcher{data: []byte("exported text")}
			text, err := New(f).Normalise(context.Background(), domain.SourceDocument{ID: "d1", ContentType: tt.contentType})

			require.NoError(t, err)
			assert.Equal(t, "exported text", text)
			assert.Equal(t, tt.wantMIME, f.gotMIME)
		})
	}
}

func TestNormalise_NotExportable(t *testing.T) {
	f := &exportFetcher{}
	_, err := New(f).Normalise(context.Background(), domain.SourceDocument{ID: "d1", ContentType: "application/vnd.google-apps.form"})

	assert.ErrorIs(t, err, domain.ErrNotExportable)
	assert.Zero(t, f.exported)
}

func TestNormalise_ExportError(t *testing.T) {
	f := &exportFetcher{err: domain.ErrContentTooLarge}
	_, err := New(f).Normalise(context.Background(), domain.SourceDocument{ID: "d1", ContentType: MimeTypeDocument})

	assert.ErrorIs(t, err, domain.ErrContentTooLarge)
}

func TestNormalise_EmptyExport(t *testing.T) {
	f := &exportFetcher{data: nil}
	text, err := New(f).Normalise(context.Background(), domain.SourceDocument{ID: "d1", ContentType: MimeTypeDocument})

	require.NoError(t, err)
	assert.Empty(t, text)
}
