// Package specific flags lines of captured output that look tied to the
// machine, user or moment the command ran: host name, IP address, working
// directory, home directory, user name, and plausible dates or datetimes.
package specific

import (
	"fmt"
	"sort"
)

// Status records how cross-run reconciliation classified a line.
type Status int

const (
	// Uncovered lines never appeared in a diff between runs.
	Uncovered Status = iota
	// Ignored lines changed in place between runs.
	Ignored
	// Removed lines were present in only one run.
	Removed
)

func (s Status) String() string {
	switch s {
	case Uncovered:
		return "uncovered"
	case Ignored:
		return "ignored"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Specific annotates one line of a reference file. Flags are set by the
// Classifier; Status, Ignore and Remove are set later by reconciliation.
type Specific struct {
	Line string

	Host         bool
	IP           bool
	Cwd          bool
	HomeDir      bool
	User         bool
	DateLike     bool
	DatetimeLike bool // never set together with DateLike

	Status Status
	Ignore [2]string // left and right text when Status is Ignored
	Remove string    // literal text when Status is Removed
}

// MarkIgnored records that the line differed in place between runs.
func (s *Specific) MarkIgnored(left, right string) {
	s.Status = Ignored
	s.Ignore = [2]string{left, right}
	s.Remove = ""
}

// MarkRemoved records that the line exists in only one run.
func (s *Specific) MarkRemoved(text string) {
	s.Status = Removed
	s.Remove = text
	s.Ignore = [2]string{}
}

// Covered reports whether a diff already accounts for the line.
func (s *Specific) Covered() bool {
	return s.Status != Uncovered
}

func (s *Specific) flagged() bool {
	return s.Host || s.IP || s.Cwd || s.HomeDir || s.User || s.DateLike || s.DatetimeLike
}

func (s *Specific) String() string {
	return fmt.Sprintf("host: %t  ip: %t  cwd: %t  homedir: %t  user: %t  datelike: %t  dtlike: %t  status: %s",
		s.Host, s.IP, s.Cwd, s.HomeDir, s.User, s.DateLike, s.DatetimeLike, s.Status)
}

// Lines is a sparse mapping from 1-based line number to annotation.
type Lines map[int]*Specific

// Numbers returns the annotated line numbers in ascending order.
func (l Lines) Numbers() []int {
	nums := make([]int, 0, len(l))
	for n := range l {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Ensure returns the annotation for line n, creating an unflagged one
// holding text if none exists.
func (l Lines) Ensure(n int, text string) *Specific {
	if s, ok := l[n]; ok {
		return s
	}
	s := &Specific{Line: text}
	l[n] = s
	return s
}

// Each calls fn for every annotation in line order.
func (l Lines) Each(fn func(n int, s *Specific)) {
	for _, n := range l.Numbers() {
		fn(n, l[n])
	}
}
