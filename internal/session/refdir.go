package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// runDir returns where copies from run are kept: the reference directory
// itself for the first run, a numbered subdirectory for later ones.
func runDir(refDir string, run int) string {
	if run == 1 {
		return refDir
	}
	return filepath.Join(refDir, strconv.Itoa(run))
}

// prepareRefDir creates the reference directory and the subdirectories for
// runs 2..iterations, deleting plain files left by an earlier session.
// Subdirectories are kept.
func prepareRefDir(refDir string, iterations int) error {
	for run := 1; run <= iterations; run++ {
		dir := runDir(refDir, run)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating reference directory: %w", err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("reading reference directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("emptying reference directory: %w", err)
			}
		}
	}
	return nil
}

// copyFiles copies files into dir and returns the copy path for each
// source. Base names that collide, ignoring case, with each other or with
// the stream captures get a numeric suffix. A failed copy is reported as a
// warning and still mapped, so the script refers to it.
func copyFiles(res *Result, log *zap.Logger, files []string, dir string) map[string]string {
	used := map[string]bool{
		strings.ToLower(Stdout): true,
		strings.ToLower(Stderr): true,
	}
	copies := make(map[string]string, len(files))
	failed := false
	for _, src := range files {
		base := filepath.Base(src)
		name := base
		for n := 1; used[strings.ToLower(name)]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true

		dst := filepath.Join(dir, name)
		copies[src] = dst
		if err := copyFile(src, dst); err != nil {
			res.warn(log, fmt.Sprintf("failed to copy %s to %s: %v", src, dst, err))
			failed = true
			continue
		}
		log.Info("copied reference", zap.String("from", src), zap.String("to", dst))
	}
	if failed {
		res.warn(log, "not all reference files were copied; still generating the test")
	}
	return copies
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
