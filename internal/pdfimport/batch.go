package pdfimport

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileError records a per-file extraction failure.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// BatchResult aggregates extraction over a set of PDFs. Failures are
// isolated per file and do not abort the batch.
type BatchResult struct {
	Files  []FileResult `json:"files"`
	Errors []FileError  `json:"errors,omitempty"`
}

// Found returns the total number of candidates across all files.
func (r *BatchResult) Found() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Candidates)
	}
	return n
}

// ExtractBatch extracts candidates from the given paths concurrently.
// Directories are walked for .pdf files; plain files are taken as-is.
// maxConcurrent bounds the number of PDFs processed in parallel.
func (im *Importer) ExtractBatch(ctx context.Context, paths []string, maxConcurrent int) (*BatchResult, error) {
	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, eris.New("pdfimport: no PDF files found")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	log := zap.L().With(zap.Int("files", len(files)))
	log.Info("pdfimport: starting batch extraction")

	var (
		mu     sync.Mutex
		result BatchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, path := range files {
		g.Go(func() error {
			fr, err := im.ExtractFile(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("pdfimport: file failed",
					zap.String("file", filepath.Base(path)),
					zap.Error(err))
				mu.Lock()
				result.Errors = append(result.Errors, FileError{Path: path, Err: err})
				mu.Unlock()
				return nil // don't fail the group
			}

			log.Debug("pdfimport: file done",
				zap.String("file", filepath.Base(path)),
				zap.Int("candidates", len(fr.Candidates)))

			mu.Lock()
			result.Files = append(result.Files, *fr)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pdfimport: batch")
	}

	// Concurrent collection scrambles order; restore the input order.
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].Path < result.Errors[j].Path })

	log.Info("pdfimport: batch done",
		zap.Int("found", result.Found()),
		zap.Int("failed", len(result.Errors)))

	return &result, nil
}

// expandPaths resolves files and directories into a sorted list of PDF
// paths. Directories are walked recursively.
func expandPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, eris.Wrapf(err, "pdfimport: stat %s", p)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, eris.Wrapf(err, "pdfimport: walk %s", p)
		}
	}

	sort.Strings(files)
	return files, nil
}
