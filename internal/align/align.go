// Package align lines up two versions of a text file and reports the lines
// that differ, pairing lines that changed in place.
package align

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/deixis/gentest/internal/lines"
)

// Pair is one difference between the left and right files. Line numbers
// are 1-based; zero means the line is absent on that side.
type Pair struct {
	Left         int
	Right        int
	LeftContent  string
	RightContent string
}

// Changed reports whether the pair holds a line present on both sides.
func (p Pair) Changed() bool {
	return p.Left != 0 && p.Right != 0
}

// Files aligns the files at paths a and b.
func Files(a, b string) ([]Pair, error) {
	left, err := lines.Read(a)
	if err != nil {
		return nil, err
	}
	right, err := lines.Read(b)
	if err != nil {
		return nil, err
	}
	return Lines(left, right), nil
}

// Lines aligns two in-memory files. Equal lines are not reported. Within
// each run of differences, deleted and inserted lines are paired in order;
// any surplus on either side is reported one-sided.
func Lines(a, b []string) []Pair {
	dmp := diffmatchpatch.New()
	ca, cb, table := dmp.DiffLinesToChars(join(a), join(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), table)

	var (
		out      []Pair
		del, ins []string
		l, r     = 1, 1
	)
	flush := func() {
		n := max(len(del), len(ins))
		dl, ir := l-len(del), r-len(ins)
		for i := 0; i < n; i++ {
			var p Pair
			if i < len(del) {
				p.Left, p.LeftContent = dl+i, del[i]
			}
			if i < len(ins) {
				p.Right, p.RightContent = ir+i, ins[i]
			}
			out = append(out, p)
		}
		del, ins = nil, nil
	}
	for _, d := range diffs {
		text := split(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			l += len(text)
			r += len(text)
		case diffmatchpatch.DiffDelete:
			del = append(del, text...)
			l += len(text)
		case diffmatchpatch.DiffInsert:
			ins = append(ins, text...)
			r += len(text)
		}
	}
	flush()
	return out
}

func join(ls []string) string {
	var b strings.Builder
	for _, s := range ls {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

func split(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
