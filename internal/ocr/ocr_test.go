package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paleobytes/gheval/internal/config"
)

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"single page", "site list, no breaks", []string{"site list, no breaks"}},
		{"three pages", "first\fsecond\fthird", []string{"first", "second", "third"}},
		{"trailing break keeps empty page", "first\f", []string{"first", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPages(tt.text))
		})
	}
}

func TestNewExtractor(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.OCRConfig
		mistralKey string
		wantType   any
		wantErr    string
	}{
		{"local", config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"}, "", &PdfToText{}, ""},
		{"empty provider defaults to local", config.OCRConfig{}, "", &PdfToText{}, ""},
		{"mistral with key", config.OCRConfig{Provider: "mistral"}, "test-key", &MistralOCR{}, ""},
		{"mistral without key", config.OCRConfig{Provider: "mistral"}, "", nil, "mistral provider requires mistral_api_key"},
		{"unknown provider", config.OCRConfig{Provider: "tesseract"}, "", nil, `unknown provider "tesseract"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := NewExtractor(tt.cfg, tt.mistralKey)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, ext)
		})
	}
}

func TestPdfToText_DefaultBinPath(t *testing.T) {
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
	assert.Equal(t, "/opt/poppler/pdftotext", NewPdfToText("/opt/poppler/pdftotext").binPath)
}

func TestPdfToText_ExtractText(t *testing.T) {
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftotext")
	require.NoError(t, os.WriteFile(fakeBin, []byte("#!/bin/sh\necho 'Suseong-ri columnar joints'\n"), 0755))

	text, err := NewPdfToText(fakeBin).ExtractText(context.Background(), "/tmp/dummy.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Suseong-ri columnar joints")
}

func TestPdfToText_ExtractText_MissingBinary(t *testing.T) {
	_, err := NewPdfToText("/nonexistent/pdftotext").ExtractText(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestMistralOCR_Defaults(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)

	assert.Equal(t, "custom-model", NewMistralOCR("key", "custom-model").model)
}

// mistralTestClient points a MistralOCR at the test server and writes a
// throwaway PDF, returning both.
func mistralTestClient(t *testing.T, handler http.HandlerFunc) (*MistralOCR, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pdfPath := filepath.Join(t.TempDir(), "survey.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 survey scan"), 0644))

	return &MistralOCR{
		apiKey:   "test-key",
		model:    "test-model",
		endpoint: srv.URL,
		client:   &http.Client{},
	}, pdfPath
}

func TestMistralOCR_ExtractText(t *testing.T) {
	m, pdfPath := mistralTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")

		json.NewEncoder(w).Encode(mistralOCRResponse{ //nolint:errcheck
			Pages: []mistralOCRPage{
				{Index: 0, Markdown: "Page one content"},
				{Index: 1, Markdown: "Page two content"},
			},
		})
	})

	text, err := m.ExtractText(context.Background(), pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "Page one content\fPage two content", text)
	assert.Len(t, SplitPages(text), 2)
}

func TestMistralOCR_ExtractText_NoPages(t *testing.T) {
	m, pdfPath := mistralTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(mistralOCRResponse{}) //nolint:errcheck
	})

	text, err := m.ExtractText(context.Background(), pdfPath)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestMistralOCR_ExtractText_APIError(t *testing.T) {
	m, pdfPath := mistralTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	})

	_, err := m.ExtractText(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API returned 401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestMistralOCR_ExtractText_MalformedResponse(t *testing.T) {
	m, pdfPath := mistralTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	})

	_, err := m.ExtractText(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal mistral response")
}

func TestMistralOCR_ExtractText_MissingFile(t *testing.T) {
	_, err := NewMistralOCR("key", "").ExtractText(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PDF")
}
