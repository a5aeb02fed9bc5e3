// Package exclusion turns a reconciled reference into the ignore patterns
// and removal literals a generated test passes to the comparison.
package exclusion

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/deixis/gentest/internal/generalize"
	"github.com/deixis/gentest/internal/logging"
	"github.com/deixis/gentest/internal/reconcile"
	"github.com/deixis/gentest/internal/specific"
)

// DefaultMaxDateVariants is the number of distinct date and datetime
// literals at which the synthesizer switches from exact patterns to
// generalized ones.
const DefaultMaxDateVariants = 5

// Set holds the exclusions for one reference.
type Set struct {
	Patterns []string `json:"patterns,omitempty"`
	Removals []string `json:"removals,omitempty"`
}

// Empty reports whether the set excludes nothing.
func (s Set) Empty() bool {
	return len(s.Patterns) == 0 && len(s.Removals) == 0
}

// Warning reports a portability problem that is not masked by a pattern.
type Warning string

func homeDirWarning(home, name string) Warning {
	return Warning(fmt.Sprintf("Non-portable reference to user's home dir (%s) found in %s", home, name))
}

// Synthesizer builds exclusion sets.
type Synthesizer struct {
	Identity        specific.Identity
	Window          specific.Window
	MaxDateVariants int
	Generalizer     generalize.Generalizer
	Logger          *zap.Logger
}

func (s *Synthesizer) maxDateVariants() int {
	if s.MaxDateVariants > 0 {
		return s.MaxDateVariants
	}
	return DefaultMaxDateVariants
}

func (s *Synthesizer) generalizer() generalize.Generalizer {
	if s.Generalizer != nil {
		return s.Generalizer
	}
	return generalize.Shape{}
}

// Synthesize merges the diff evidence and the specificity flags in a into
// the exclusions for the reference called name. A nil analysis yields an
// empty set.
func (s *Synthesizer) Synthesize(name string, a *reconcile.Analysis) (Set, []Warning) {
	var set Set
	if a == nil {
		return set, nil
	}
	log := logging.OrNop(s.Logger)
	a.Specifics.Each(func(n int, sp *specific.Specific) {
		log.Debug("specific line", zap.String("reference", name), zap.Int("line", n),
			zap.String("text", sp.Line), zap.Stringer("flags", sp))
	})

	gen := s.generalizer()
	set.Patterns = append(set.Patterns, gen.Patterns(a.Common)...)
	set.Removals = append(set.Removals, a.Removed...)

	var uncovered []*specific.Specific
	a.Specifics.Each(func(_ int, sp *specific.Specific) {
		if !sp.Covered() {
			uncovered = append(uncovered, sp)
		}
	})

	id := s.Identity
	literals := []struct {
		value string
		flag  func(*specific.Specific) bool
	}{
		{id.Host, func(sp *specific.Specific) bool { return sp.Host }},
		{id.IP, func(sp *specific.Specific) bool { return sp.IP }},
		{id.Cwd, func(sp *specific.Specific) bool { return sp.Cwd }},
		{id.User, func(sp *specific.Specific) bool { return sp.User }},
	}
	for _, l := range literals {
		if l.value != "" && anyLine(uncovered, l.flag) {
			set.Patterns = append(set.Patterns, regexp.QuoteMeta(l.value))
		}
	}

	var warnings []Warning
	cwdInHome := id.CwdInHome()
	home := func(sp *specific.Specific) bool {
		return sp.HomeDir && !(cwdInHome && sp.Cwd)
	}
	if id.HomeDir != "" && anyLine(uncovered, home) {
		w := homeDirWarning(id.HomeDir, name)
		log.Warn(string(w))
		warnings = append(warnings, w)
	}

	var dates, datetimes []string
	for _, sp := range uncovered {
		switch {
		case sp.DateLike:
			dates = append(dates, s.Window.FindDates(sp.Line)...)
		case sp.DatetimeLike:
			datetimes = append(datetimes, s.Window.FindDatetimes(sp.Line)...)
		}
	}
	dates, datetimes = distinct(dates), distinct(datetimes)
	if len(dates)+len(datetimes) < s.maxDateVariants() {
		for _, d := range append(dates, datetimes...) {
			set.Patterns = append(set.Patterns, regexp.QuoteMeta(d))
		}
	} else {
		set.Patterns = append(set.Patterns, gen.Fragments(dates)...)
		set.Patterns = append(set.Patterns, gen.Fragments(datetimes)...)
	}

	set.Patterns = distinct(set.Patterns)
	return set, warnings
}

func anyLine(lines []*specific.Specific, pred func(*specific.Specific) bool) bool {
	for _, sp := range lines {
		if pred(sp) {
			return true
		}
	}
	return false
}

func distinct(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
