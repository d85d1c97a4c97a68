package pdfimport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor returns canned text per file basename.
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeExtractor) ExtractText(_ context.Context, pdfPath string) (string, error) {
	base := filepath.Base(pdfPath)
	if err, ok := f.errs[base]; ok {
		return "", err
	}
	return f.texts[base], nil
}

func TestExtractFile_SingleCandidate(t *testing.T) {
	ex := &fakeExtractor{texts: map[string]string{
		"jeju_lava_tubes.pdf": `The cave entrance lies at 33.5283 N, 126.7714 E on the northeast flank.`,
	}}
	im := New(ex, 50)

	fr, err := im.ExtractFile(context.Background(), "/papers/jeju_lava_tubes.pdf")
	require.NoError(t, err)

	require.Len(t, fr.Candidates, 1)
	c := fr.Candidates[0]
	assert.Equal(t, "jeju_lava_tubes", c.Name)
	assert.InDelta(t, 33.5283, c.Latitude, 0.0001)
	assert.InDelta(t, 126.7714, c.Longitude, 0.0001)
	assert.Equal(t, 1, c.Page)
	assert.Contains(t, c.Context, "cave entrance")
	assert.Empty(t, fr.ScannedPages)
}

func TestExtractFile_MultipleCandidatesNumbered(t *testing.T) {
	ex := &fakeExtractor{texts: map[string]string{
		"survey.pdf": "Outcrop A at 36.1234 N, 128.5678 E was sampled first.\f" +
			"Outcrop B at 35°10'47\"N 129°02'32\"E followed.",
	}}
	im := New(ex, 50)

	fr, err := im.ExtractFile(context.Background(), "survey.pdf")
	require.NoError(t, err)

	require.Len(t, fr.Candidates, 2)
	assert.Equal(t, "survey - Site 1", fr.Candidates[0].Name)
	assert.Equal(t, "survey - Site 2", fr.Candidates[1].Name)
	assert.Equal(t, 1, fr.Candidates[0].Page)
	assert.Equal(t, 2, fr.Candidates[1].Page)
}

func TestExtractFile_DedupeAcrossPages(t *testing.T) {
	ex := &fakeExtractor{texts: map[string]string{
		"repeat.pdf": "Site at 36.1234 N, 128.5678 E in the abstract.\f" +
			"As noted, the site at 36.1234 N, 128.5678 E was revisited.",
	}}
	im := New(ex, 50)

	fr, err := im.ExtractFile(context.Background(), "repeat.pdf")
	require.NoError(t, err)

	require.Len(t, fr.Candidates, 1)
	assert.Equal(t, 1, fr.Candidates[0].Page, "earliest page wins")
}

func TestExtractFile_ScannedPagesFlagged(t *testing.T) {
	ex := &fakeExtractor{texts: map[string]string{
		"scan.pdf": "  \f" + // page 1: no text, likely scanned
			"Locality: 36.1234 N, 128.5678 E near the quarry.",
	}}
	im := New(ex, 50)

	fr, err := im.ExtractFile(context.Background(), "scan.pdf")
	require.NoError(t, err)

	assert.Equal(t, []int{1}, fr.ScannedPages)
	require.Len(t, fr.Candidates, 1)
	assert.Equal(t, 2, fr.Candidates[0].Page)
}

func TestExtractFile_ExtractorError(t *testing.T) {
	ex := &fakeExtractor{errs: map[string]error{
		"broken.pdf": eris.New("pdftotext exited 1"),
	}}
	im := New(ex, 50)

	_, err := im.ExtractFile(context.Background(), "broken.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestCandidate_SiteInput(t *testing.T) {
	c := Candidate{
		Name:      "survey - Site 2",
		Latitude:  35.1797,
		Longitude: 129.0756,
		Page:      3,
		Context:   "...the outcrop at 35.1797 N, 129.0756 E dips steeply...",
		Source:    "/papers/survey.pdf",
	}

	in := c.SiteInput("Paleontological")
	assert.Equal(t, "survey - Site 2", in.Name)
	assert.Equal(t, "Paleontological", in.SiteType)
	assert.Contains(t, in.Description, "survey.pdf")
	assert.Contains(t, in.Description, "page 3")
	assert.Contains(t, in.Description, "dips steeply")
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
	return path
}

func TestExtractBatch_DirectoryWalk(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a.pdf")
	writePDF(t, dir, "b.PDF")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ex := &fakeExtractor{texts: map[string]string{
		"a.pdf": "Site at 36.1234 N, 128.5678 E.",
		"b.PDF": "Site at 35.1111 N, 129.2222 E.",
	}}
	im := New(ex, 50)

	res, err := im.ExtractBatch(context.Background(), []string{dir}, 4)
	require.NoError(t, err)

	assert.Len(t, res.Files, 2, "txt file skipped")
	assert.Equal(t, 2, res.Found())
	assert.Empty(t, res.Errors)
}

func TestExtractBatch_ErrorIsolation(t *testing.T) {
	dir := t.TempDir()
	good := writePDF(t, dir, "good.pdf")
	bad := writePDF(t, dir, "bad.pdf")

	ex := &fakeExtractor{
		texts: map[string]string{"good.pdf": "Site at 36.1234 N, 128.5678 E."},
		errs:  map[string]error{"bad.pdf": eris.New("pdftotext exited 1")},
	}
	im := New(ex, 50)

	res, err := im.ExtractBatch(context.Background(), []string{good, bad}, 2)
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.True(t, strings.HasSuffix(res.Files[0].Path, "good.pdf"))
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasSuffix(res.Errors[0].Path, "bad.pdf"))
	assert.Equal(t, 1, res.Found())
}

func TestExtractBatch_NoPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	im := New(&fakeExtractor{}, 50)
	_, err := im.ExtractBatch(context.Background(), []string{dir}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PDF files")
}

func TestExtractBatch_MissingPath(t *testing.T) {
	im := New(&fakeExtractor{}, 50)
	_, err := im.ExtractBatch(context.Background(), []string{"/does/not/exist"}, 2)
	require.Error(t, err)
}
