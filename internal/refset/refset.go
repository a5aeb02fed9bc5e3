// Package refset resolves the user's reference targets (files, directories
// and glob patterns) into the concrete files each run of the command
// produced or touched.
package refset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deixis/gentest/internal/logging"
)

// DefaultMaxFiles caps the number of files recorded in a Snapshot.
const DefaultMaxFiles = 10000

// DefaultIgnore lists base-name globs never treated as reference files.
var DefaultIgnore = []string{"__pycache__", ".DS_Store", ".git", "*.pyc"}

// Snapshot maps absolute file paths to the modification time recorded
// before the command first ran.
type Snapshot map[string]time.Time

// Options configures a Resolver.
type Options struct {
	RefDir   string   // reference-output directory; never expanded or recorded
	MaxFiles int      // defaults to DefaultMaxFiles
	Ignore   []string // extra base-name globs, added to DefaultIgnore
	Logger   *zap.Logger
}

// OverflowError is returned when the watched directories hold more files
// than the configured maximum.
type OverflowError struct {
	Max     int
	Command string // equivalent command with a raised limit, if known
}

func (e *OverflowError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "too many files in reference directories (max %d)", e.Max)
	if e.Command != "" {
		fmt.Fprintf(&b, "\n\nTo raise the limit, use:\n\n  %s\n", e.Command)
	}
	return b.String()
}

// Resolver tracks one reference set per run. Each set starts as an
// independent copy of the canonicalized targets.
type Resolver struct {
	opts     Options
	ignore   []string
	runs     map[int]map[string]struct{}
	snapshot Snapshot
	log      *zap.Logger
}

// Canonicalize expands a leading ~ and resolves path relative to cwd.
func Canonicalize(path, cwd string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cwd, path)
}

// NewResolver canonicalizes raw against cwd and seeds a set for each of
// the iterations runs (numbered from 1).
func NewResolver(raw []string, cwd string, iterations int, opts Options) *Resolver {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	canonical := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		canonical[Canonicalize(p, cwd)] = struct{}{}
	}

	runs := make(map[int]map[string]struct{}, iterations)
	for run := 1; run <= iterations; run++ {
		set := make(map[string]struct{}, len(canonical))
		for p := range canonical {
			set[p] = struct{}{}
		}
		runs[run] = set
	}

	return &Resolver{
		opts:     opts,
		ignore:   append(append([]string{}, DefaultIgnore...), opts.Ignore...),
		runs:     runs,
		snapshot: make(Snapshot),
		log:      logging.OrNop(opts.Logger),
	}
}

// Snapshot returns the timestamps recorded by TakeSnapshot.
func (r *Resolver) Snapshot() Snapshot {
	return r.snapshot
}

// TakeSnapshot records the modification time of every file reachable under
// a directory among run 1's targets. It must be called before the command
// first runs.
func (r *Resolver) TakeSnapshot() error {
	var dirs []string
	for p := range r.runs[1] {
		if isDir(p) && !r.Ignored(p) {
			dirs = append(dirs, p)
		}
	}
	sort.Strings(dirs)

	for len(dirs) > 0 {
		dir := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]
		if r.Ignored(dir) {
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			r.log.Debug("skipping unreadable directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if r.ignoredName(e.Name()) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.IsDir() {
				dirs = append(dirs, path)
				continue
			}
			r.snapshot[path] = info.ModTime()
		}
		if len(r.snapshot) > r.opts.MaxFiles {
			return &OverflowError{Max: r.opts.MaxFiles}
		}
	}
	r.log.Debug("snapshot taken", zap.Int("files", len(r.snapshot)))
	return nil
}

// Resolve finalizes the reference set for run: directories are replaced by
// the files under them that the run created or modified, and glob patterns
// by their matches. The result is sorted and contains no directories.
// Warnings describe patterns that matched nothing.
func (r *Resolver) Resolve(run int) ([]string, []string, error) {
	set, ok := r.runs[run]
	if !ok {
		return nil, nil, fmt.Errorf("no reference set for run %d", run)
	}

	var warnings []string
	for {
		if err := r.expandDirs(set); err != nil {
			return nil, warnings, err
		}
		warnings = append(warnings, r.expandGlobs(set)...)
		if len(dirsIn(set)) == 0 {
			break
		}
	}
	return r.Files(run), warnings, nil
}

// Files returns the current reference set for run, sorted.
func (r *Resolver) Files(run int) []string {
	set := r.runs[run]
	files := make([]string, 0, len(set))
	for p := range set {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}

func (r *Resolver) expandDirs(set map[string]struct{}) error {
	for dirs := dirsIn(set); len(dirs) > 0; dirs = dirsIn(set) {
		for _, d := range dirs {
			delete(set, d)
			if r.Ignored(d) {
				continue
			}
			if err := r.addChanged(set, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// addChanged adds the immediate children of dir that are new since the
// snapshot, newer than it, or directories themselves.
func (r *Resolver) addChanged(set map[string]struct{}, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading reference directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if r.ignoredName(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil {
			r.log.Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			continue
		}
		before, seen := r.snapshot[path]
		if info.IsDir() || !seen || info.ModTime().After(before) {
			set[path] = struct{}{}
		}
	}
	return nil
}

func (r *Resolver) expandGlobs(set map[string]struct{}) []string {
	var patterns []string
	for p := range set {
		if isGlob(p) {
			patterns = append(patterns, p)
		}
	}
	sort.Strings(patterns)

	var warnings []string
	for _, p := range patterns {
		delete(set, p)
		matches, err := filepath.Glob(p)
		if err != nil || len(matches) == 0 {
			w := fmt.Sprintf("pattern %q matched no files; ignoring", p)
			r.log.Warn("unmatched reference pattern", zap.String("pattern", p))
			warnings = append(warnings, w)
			continue
		}
		for _, m := range matches {
			set[m] = struct{}{}
		}
	}
	return warnings
}

// Ignored reports whether path is excluded from reference sets: either its
// base name matches an ignore glob or it lies inside the reference directory.
func (r *Resolver) Ignored(path string) bool {
	if r.ignoredName(filepath.Base(path)) {
		return true
	}
	return r.opts.RefDir != "" && within(path, r.opts.RefDir)
}

func (r *Resolver) ignoredName(name string) bool {
	for _, pat := range r.ignore {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

func dirsIn(set map[string]struct{}) []string {
	var dirs []string
	for p := range set {
		if isDir(p) {
			dirs = append(dirs, p)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
