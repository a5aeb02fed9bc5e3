// Package generalize infers regular expressions that match a set of
// example strings while keeping their constant parts literal.
package generalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Generalizer turns example strings into regular expressions that match
// all of them.
type Generalizer interface {
	Patterns(examples []string) []string
	Fragments(examples []string) []string
}

// Shape is the default Generalizer. It groups examples by token shape and
// replaces only the positions that vary within a group.
type Shape struct{}

// Patterns returns anchored expressions matching whole examples.
func (Shape) Patterns(examples []string) []string {
	return Patterns(examples)
}

// Fragments returns unanchored expressions for examples that occur inside
// longer lines.
func (Shape) Fragments(examples []string) []string {
	return Fragments(examples)
}

// Patterns returns anchored expressions, one per token shape, in order of
// first appearance.
func Patterns(examples []string) []string {
	return generalize(examples, true)
}

// Fragments is Patterns without the ^ and $ anchors.
func Fragments(examples []string) []string {
	return generalize(examples, false)
}

var tokenRE = regexp.MustCompile(`[A-Za-z0-9]+|\s+|(?s:.)`)

type token struct {
	text string
	kind string
}

func tokenize(s string) []token {
	parts := tokenRE.FindAllString(s, -1)
	out := make([]token, len(parts))
	for i, p := range parts {
		kind := p
		switch {
		case isWord(p):
			kind = "w"
		case strings.TrimSpace(p) == "":
			kind = "s"
		}
		out[i] = token{text: p, kind: kind}
	}
	return out
}

func signature(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.kind)
		b.WriteByte(0)
	}
	return b.String()
}

func generalize(examples []string, anchored bool) []string {
	var (
		order  []string
		groups = map[string][][]token{}
		seen   = map[string]bool{}
	)
	for _, ex := range examples {
		if seen[ex] {
			continue
		}
		seen[ex] = true
		toks := tokenize(ex)
		sig := signature(toks)
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], toks)
	}

	var out []string
	emitted := map[string]bool{}
	for _, sig := range order {
		p := pattern(groups[sig])
		if anchored {
			p = "^" + p + "$"
		}
		if p == "" || emitted[p] {
			continue
		}
		emitted[p] = true
		out = append(out, p)
	}
	return out
}

func pattern(group [][]token) string {
	var b strings.Builder
	for i := range group[0] {
		col := make([]string, len(group))
		for j, toks := range group {
			col[j] = toks[i].text
		}
		b.WriteString(column(col))
	}
	return b.String()
}

// column returns the expression for one token position.
func column(col []string) string {
	same := true
	for _, s := range col[1:] {
		if s != col[0] {
			same = false
			break
		}
	}
	if same {
		return regexp.QuoteMeta(col[0])
	}
	switch {
	case all(col, isDigits):
		if n, ok := fixedLen(col); ok {
			return `\d{` + strconv.Itoa(n) + `}`
		}
		return `\d+`
	case all(col, isLower):
		return `[a-z]+`
	case all(col, isUpper):
		return `[A-Z]+`
	case all(col, isLetters):
		return `[A-Za-z]+`
	case all(col, isHex):
		return `[0-9a-fA-F]+`
	case all(col, isWord):
		return `[A-Za-z0-9]+`
	case all(col, func(s string) bool { return strings.TrimSpace(s) == "" }):
		return `\s+`
	}
	return `.+`
}

func fixedLen(col []string) (int, bool) {
	n := len(col[0])
	for _, s := range col[1:] {
		if len(s) != n {
			return 0, false
		}
	}
	return n, true
}

func all(col []string, pred func(string) bool) bool {
	for _, s := range col {
		if !pred(s) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool  { return runs(s, func(r byte) bool { return r >= '0' && r <= '9' }) }
func isLower(s string) bool   { return runs(s, func(r byte) bool { return r >= 'a' && r <= 'z' }) }
func isUpper(s string) bool   { return runs(s, func(r byte) bool { return r >= 'A' && r <= 'Z' }) }
func isLetters(s string) bool { return runs(s, isAlpha) }
func isWord(s string) bool {
	return runs(s, func(r byte) bool { return isAlpha(r) || (r >= '0' && r <= '9') })
}

func isHex(s string) bool {
	return runs(s, func(r byte) bool {
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	})
}

func isAlpha(r byte) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func runs(s string, pred func(byte) bool) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return true
}
