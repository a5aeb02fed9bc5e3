package specific

import (
	"regexp"
	"strconv"
)

const dateTerm = `(\d{1,4})[/.\-](\d{1,4})[/.\-](\d{1,4})`

var (
	dateRE     = regexp.MustCompile(`(?:^|\D)` + dateTerm)
	datetimeRE = regexp.MustCompile(`(?:^|\D)` + dateTerm +
		`[ T](\d{1,2}):(\d{1,2})(?::\d{1,2})?(?:\.?\d+)?(?: ?[+\-]\d{2}:?\d{2})?\]?Z?`)
)

// match is one date-shaped occurrence: the offsets of the literal and its
// three numeric fields.
type match struct {
	start, end int
	n          [3]int
}

func findAll(re *regexp.Regexp, line string) []match {
	var out []match
	for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
		m := match{start: loc[2], end: loc[1]}
		for i := 0; i < 3; i++ {
			m.n[i], _ = strconv.Atoi(line[loc[2+2*i]:loc[3+2*i]])
		}
		out = append(out, m)
	}
	return out
}

// Plausible reports whether the fields a, b, c read as a date inside w
// under any of the orders day/month/year, year/month/day or
// month/day/year.
func (w Window) Plausible(a, b, c int) bool {
	switch {
	case w.Contains(c, b, a):
		return true
	case w.Contains(a, b, c):
		return true
	case w.Contains(c, a, b):
		return true
	}
	return false
}

// DateLike reports whether line holds at least one plausible date.
func (w Window) DateLike(line string) bool {
	for _, m := range findAll(dateRE, line) {
		if w.Plausible(m.n[0], m.n[1], m.n[2]) {
			return true
		}
	}
	return false
}

// DatetimeShaped reports whether line contains a date followed by a time,
// without checking plausibility.
func DatetimeShaped(line string) bool {
	return datetimeRE.MatchString(line)
}

// FindDatetimes returns the plausible datetime literals in line, in order.
func (w Window) FindDatetimes(line string) []string {
	var out []string
	for _, m := range findAll(datetimeRE, line) {
		if w.Plausible(m.n[0], m.n[1], m.n[2]) {
			out = append(out, line[m.start:m.end])
		}
	}
	return out
}

// FindDates returns the plausible date literals in line that do not begin
// a datetime.
func (w Window) FindDates(line string) []string {
	inDatetime := map[int]bool{}
	for _, m := range findAll(datetimeRE, line) {
		inDatetime[m.start] = true
	}
	var out []string
	for _, m := range findAll(dateRE, line) {
		if inDatetime[m.start] {
			continue
		}
		if w.Plausible(m.n[0], m.n[1], m.n[2]) {
			out = append(out, line[m.start:m.end])
		}
	}
	return out
}
