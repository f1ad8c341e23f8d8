// Package exports locates Stripe CSV exports on disk for batch runs.
package exports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// processedDir is the subdirectory batch-processed exports move to.
const processedDir = "processed"

// outputSuffix marks summary files produced by earlier runs.
const outputSuffix = "_out.csv"

// FileInfo describes a CSV export in a scanned directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns CSV files directly under dir, skipping subdirectories and
// summaries from earlier runs. A missing directory yields no files.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading export dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, outputSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// OutputPath returns the default summary path for an export:
// "fees.csv" becomes "fees_out.csv" in the same directory.
func OutputPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), stem+"_out.csv")
}
