package specific

import (
	"strings"

	"github.com/deixis/gentest/internal/lines"
)

// Classifier flags environment-specific content in reference files.
type Classifier struct {
	Identity Identity
	Window   Window
}

// Classify reads the file at path and returns annotations for every line
// carrying at least one flag.
func (c *Classifier) Classify(path string) (Lines, error) {
	content, err := lines.Read(path)
	if err != nil {
		return nil, err
	}
	return c.ClassifyLines(content), nil
}

// ClassifyLines annotates an in-memory file.
func (c *Classifier) ClassifyLines(content []string) Lines {
	out := Lines{}
	for i, line := range content {
		if s := c.ClassifyLine(line); s != nil {
			out[i+1] = s
		}
	}
	return out
}

// ClassifyLine returns the annotation for one line, or nil when nothing
// about it is specific.
func (c *Classifier) ClassifyLine(line string) *Specific {
	id := c.Identity
	s := &Specific{
		Line:     line,
		DateLike: c.Window.DateLike(line),
		Host:     contains(line, id.Host),
		IP:       contains(line, id.IP),
		Cwd:      contains(line, id.Cwd),
		HomeDir:  contains(line, id.HomeDir),
	}
	if s.DateLike && DatetimeShaped(line) {
		s.DateLike = false
		s.DatetimeLike = true
	}
	s.User = contains(line, id.User) && !(s.HomeDir && id.UserInHome())
	if !s.flagged() {
		return nil
	}
	return s
}

func contains(line, needle string) bool {
	return needle != "" && strings.Contains(line, needle)
}
