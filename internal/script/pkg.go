package script

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// DetectPackage returns the package clause a test file written into dir
// should use. Non-test Go files decide first, then other test files, then
// the directory name. skip names a file to leave out, normally the script
// being regenerated.
func DetectPackage(dir, skip string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fromDir(dir)
	}
	var plain, tests []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || filepath.Join(dir, name) == skip {
			continue
		}
		if strings.HasSuffix(name, suffix) {
			tests = append(tests, name)
		} else {
			plain = append(plain, name)
		}
	}
	sort.Strings(plain)
	sort.Strings(tests)
	fset := token.NewFileSet()
	for _, name := range append(plain, tests...) {
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.PackageClauseOnly)
		if err == nil && f.Name != nil {
			return f.Name.Name
		}
	}
	return fromDir(dir)
}

func fromDir(dir string) string {
	name := strings.ToLower(strings.ReplaceAll(Sanitize(filepath.Base(dir)), "_", ""))
	if name == "" {
		return "gentest"
	}
	if unicode.IsDigit(rune(name[0])) {
		return "pkg" + name
	}
	return name
}
