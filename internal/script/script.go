// Package script renders the Go test file that re-runs a command and
// checks its output against the saved references.
package script

import (
	"bytes"
	"fmt"
	"go/format"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/deixis/gentest/internal/exclusion"
)

// File is one reference file checked by the script.
type File struct {
	// Actual is the absolute path the command writes.
	Actual string
	// Reference is the absolute path of the saved copy.
	Reference  string
	Exclusions exclusion.Set
}

// Input describes everything the rendered script needs.
type Input struct {
	Package    string
	GenCommand string
	Command    string
	Cwd        string
	RefDir     string
	ScriptPath string
	Name       string
	ExitCode   int
	Relative   bool

	CheckStdout bool
	CheckStderr bool
	Stdout      exclusion.Set
	Stderr      exclusion.Set
	Files       []File
}

type test struct {
	Name      string
	Kind      string
	Actual    string
	Reference string
	Patterns  []string
	Removals  []string
}

type view struct {
	GenCommand string
	Package    string
	Ident      string
	Var        string
	Command    string
	Dir        string
	ExitCode   int
	Tests      []test
}

var tmpl = template.Must(template.New("script").Funcs(template.FuncMap{
	"quote": strconv.Quote,
	"raw":   raw,
}).Parse(`// Generated by gentest. Regenerate with:
//
//	{{.GenCommand}}

package {{.Package}}

import (
{{- if .Tests}}
	"path/filepath"
{{- end}}
	"testing"

	"github.com/deixis/gentest/refcheck"
)

var {{.Var}} = &refcheck.Command{
	Line: {{quote .Command}},
	Dir:  {{quote .Dir}},
}

func Test{{.Ident}}_ExitCode(t *testing.T) {
	out := {{.Var}}.Run(t)
	if out.ExitCode != {{.ExitCode}} {
		t.Errorf("exit code = %d, want {{.ExitCode}}", out.ExitCode)
	}
}
{{range .Tests}}
func Test{{$.Ident}}_{{.Name}}(t *testing.T) {
{{- if eq .Kind "String"}}
	out := {{$.Var}}.Run(t)
{{- else}}
	{{$.Var}}.Run(t)
{{- end}}
	refcheck.Assert{{.Kind}}(t, {{.Actual}}, {{.Reference}},
{{- if .Patterns}}
		refcheck.IgnorePatterns(
{{- range .Patterns}}
			{{raw .}},
{{- end}}
		),
{{- end}}
{{- if .Removals}}
		refcheck.RemoveLines(
{{- range .Removals}}
			{{quote .}},
{{- end}}
		),
{{- end}}
	)
}
{{end}}`))

// Render writes the gofmt-formatted test file for in.
func Render(in *Input) ([]byte, error) {
	v, err := in.view()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("rendering script: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting script: %w", err)
	}
	return src, nil
}

func (in *Input) view() (*view, error) {
	ident := identifier(in.Name)
	v := &view{
		GenCommand: in.GenCommand,
		Package:    in.Package,
		Ident:      ident,
		Var:        "gentest" + ident,
		Command:    in.Command,
		Dir:        in.Cwd,
		ExitCode:   in.ExitCode,
	}
	if v.Package == "" {
		v.Package = DetectPackage(filepath.Dir(in.ScriptPath), in.ScriptPath)
	}
	if in.Relative {
		rel, err := filepath.Rel(filepath.Dir(in.ScriptPath), in.Cwd)
		if err != nil {
			return nil, fmt.Errorf("relative working directory: %w", err)
		}
		v.Dir = filepath.ToSlash(rel)
	}

	names := newNamer("ExitCode", "Stdout", "Stderr")
	stream := func(name, field string, set exclusion.Set) {
		v.Tests = append(v.Tests, test{
			Name:      name,
			Kind:      "String",
			Actual:    "out." + field,
			Reference: in.pathExpr(v.Var, filepath.Join(in.RefDir, strings.ToUpper(field))),
			Patterns:  set.Patterns,
			Removals:  set.Removals,
		})
	}
	if in.CheckStdout {
		stream("Stdout", "Stdout", in.Stdout)
	}
	if in.CheckStderr {
		stream("Stderr", "Stderr", in.Stderr)
	}
	for _, f := range in.Files {
		v.Tests = append(v.Tests, test{
			Name:      names.name(f.Actual),
			Kind:      "File",
			Actual:    in.pathExpr(v.Var, f.Actual),
			Reference: in.pathExpr(v.Var, f.Reference),
			Patterns:  f.Exclusions.Patterns,
			Removals:  f.Exclusions.Removals,
		})
	}
	return v, nil
}

// pathExpr renders path as a Go expression, relative to the command's
// directory when it lies inside it.
func (in *Input) pathExpr(v, path string) string {
	rel, err := filepath.Rel(in.Cwd, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return strconv.Quote(path)
	}
	return fmt.Sprintf("filepath.Join(%s.Dir, %s)", v, strconv.Quote(filepath.ToSlash(rel)))
}

// raw quotes s as a raw string literal when it can, which keeps regular
// expressions readable.
func raw(s string) string {
	if strings.ContainsAny(s, "`\r") || !strconv.CanBackquote(s) {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}
