package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

const suffix = "_test.go"

// Path canonicalizes the script path given on the command line. A missing
// extension becomes .go, any other extension is rejected, and the file name
// is forced to end in _test.go.
func Path(raw, cwd string) (string, error) {
	p := raw
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	p = filepath.Clean(p)
	switch ext := filepath.Ext(p); ext {
	case "":
		p += ".go"
	case ".go":
	default:
		return "", fmt.Errorf("extension %s on %s must be .go", ext, raw)
	}
	if !strings.HasSuffix(p, suffix) {
		p = strings.TrimSuffix(p, ".go") + suffix
	}
	return p, nil
}

// Name returns the session name for a script path: its base name without
// the _test.go suffix. It names the reference directory ref/<name>.
func Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), suffix)
}

// DefaultPath returns the script file name used when none is given.
func DefaultPath(command string) string {
	return Sanitize(command) + suffix
}

// Sanitize replaces every character that is not a letter or digit with an
// underscore.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, s)
}

// identifier turns a sanitized name into an exported Go identifier.
func identifier(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(Sanitize(name), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return "Command"
	}
	return b.String()
}

// namer hands out unique test names.
type namer struct {
	used      map[string]bool
	qualifier int
}

func newNamer(reserved ...string) *namer {
	n := &namer{used: map[string]bool{}, qualifier: 1}
	for _, r := range reserved {
		n.used[r] = true
	}
	return n
}

// name returns the sanitized base name of path, qualified with a number
// when it was already taken.
func (n *namer) name(path string) string {
	name := Sanitize(filepath.Base(path))
	if n.used[name] {
		for {
			n.qualifier++
			if q := name + strconv.Itoa(n.qualifier); !n.used[q] {
				name = q
				break
			}
		}
	}
	n.used[name] = true
	return name
}
