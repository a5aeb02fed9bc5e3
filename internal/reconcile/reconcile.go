// Package reconcile compares the reference copies captured on each run and
// sorts the differences into lines that change in place and lines that
// come and go.
package reconcile

import (
	"os"

	"go.uber.org/zap"

	"github.com/deixis/gentest/internal/align"
	"github.com/deixis/gentest/internal/logging"
	"github.com/deixis/gentest/internal/specific"
)

// Analysis is the outcome of reconciling one reference across runs.
type Analysis struct {
	// Specifics annotates lines of the first run's copy.
	Specifics specific.Lines
	// Common holds the left and right text of every in-place change.
	Common []string
	// Removed holds the text of lines present in only one run.
	Removed []string
}

// Empty reports whether the runs agreed on every line.
func (a *Analysis) Empty() bool {
	return len(a.Common) == 0 && len(a.Removed) == 0
}

// Reconciler classifies the first run's copy and merges the differences
// against every later copy into it.
type Reconciler struct {
	Classifier *specific.Classifier
	Logger     *zap.Logger
}

// Reconcile analyses first against each of later. It returns nil for a
// directory. A later copy that does not exist is skipped.
func (r *Reconciler) Reconcile(first string, later []string) (*Analysis, error) {
	info, err := os.Stat(first)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	log := logging.OrNop(r.Logger)

	specifics, err := r.Classifier.Classify(first)
	if err != nil {
		return nil, err
	}
	a := &Analysis{Specifics: specifics}
	for _, path := range later {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Debug("later copy missing", zap.String("path", path))
			continue
		}
		pairs, err := align.Files(first, path)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			a.merge(p)
		}
	}
	return a, nil
}

func (a *Analysis) merge(p align.Pair) {
	switch {
	case p.Changed():
		a.Common = append(a.Common, p.LeftContent, p.RightContent)
		a.Specifics.Ensure(p.Left, p.LeftContent).MarkIgnored(p.LeftContent, p.RightContent)
	case p.Left != 0:
		a.Removed = append(a.Removed, p.LeftContent)
		a.Specifics.Ensure(p.Left, p.LeftContent).MarkRemoved(p.LeftContent)
	default:
		// Right-only lines have no position in the first copy.
		a.Removed = append(a.Removed, p.RightContent)
	}
}
