// Package report persists the outcome of generation sessions so they can
// be inspected after the fact, over MCP or as JSON from the CLI.
package report

import (
	"fmt"
	"sort"
	"time"
)

// Store persists and retrieves session reports.
type Store interface {
	Save(s *Session) error
	Load(id string) (*Session, error)
}

// Session is the structured outcome of one generation session.
type Session struct {
	ID         string        `json:"id"`
	Command    string        `json:"command"`
	GenCommand string        `json:"gen_command"`
	Script     string        `json:"script,omitempty"`
	Cwd        string        `json:"cwd"`
	RefDir     string        `json:"ref_dir,omitempty"`
	Iterations int           `json:"iterations"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration_ns"`

	CheckStdout bool `json:"check_stdout"`
	CheckStderr bool `json:"check_stderr"`

	References []Reference `json:"references,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// Reference describes one checked output: a file the command wrote, or
// STDOUT/STDERR.
type Reference struct {
	Name     string   `json:"name"`
	Source   string   `json:"source,omitempty"` // path the command writes; empty for streams
	Copy     string   `json:"copy"`             // saved reference copy
	Patterns []string `json:"patterns,omitempty"`
	Removals []string `json:"removals,omitempty"`
}

// Reference returns the reference with the given name, source path or
// copy path.
func (s *Session) Reference(key string) (*Reference, error) {
	for i := range s.References {
		r := &s.References[i]
		if r.Name == key || r.Source == key || r.Copy == key {
			return r, nil
		}
	}
	return nil, fmt.Errorf("session %s has no reference %q", s.ID, key)
}

// ReferenceNames returns the names of all references, sorted.
func (s *Session) ReferenceNames() []string {
	names := make([]string, len(s.References))
	for i, r := range s.References {
		names[i] = r.Name
	}
	sort.Strings(names)
	return names
}

// ExclusionCount returns the total number of patterns and removals.
func (s *Session) ExclusionCount() int {
	n := 0
	for _, r := range s.References {
		n += len(r.Patterns) + len(r.Removals)
	}
	return n
}
