package generalize

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestPatterns(t *testing.T) {
	tests := []struct {
		name     string
		examples []string
		want     []string
	}{
		{
			name:     "single example is literal",
			examples: []string{"a.b (c)"},
			want:     []string{`^a\.b \(c\)$`},
		},
		{
			name:     "fixed width digits",
			examples: []string{"took 12 ms", "took 47 ms"},
			want:     []string{`^took \d{2} ms$`},
		},
		{
			name:     "variable width digits",
			examples: []string{"took 3 ms", "took 250 ms"},
			want:     []string{`^took \d+ ms$`},
		},
		{
			name:     "letters",
			examples: []string{"user bob", "user alice"},
			want:     []string{`^user [a-z]+$`},
		},
		{
			name:     "hex",
			examples: []string{"id 3fa9", "id 0c1e"},
			want:     []string{`^id [0-9a-fA-F]+$`},
		},
		{
			name:     "distinct shapes in first-seen order",
			examples: []string{"x=1", "done", "x=2", "done"},
			want:     []string{`^x=\d{1}$`, `^done$`},
		},
		{
			name:     "mixed words",
			examples: []string{"build 12ms", "build 7xs"},
			want:     []string{`^build [A-Za-z0-9]+$`},
		},
		{
			name: "no examples",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Patterns(tt.examples)); diff != "" {
				t.Errorf("Patterns() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatterns_MatchesExamplesOnly(t *testing.T) {
	examples := []string{
		"Run at 2024-01-05 10:00:00 on host alpha",
		"Run at 2024-01-05 10:00:07 on host alpha",
	}
	pats := Patterns(examples)
	assert.Len(t, pats, 1)
	re := regexp.MustCompile(pats[0])
	for _, ex := range examples {
		assert.True(t, re.MatchString(ex), ex)
	}
	assert.False(t, re.MatchString("Run at 1999-01-05 10:00:00 on host alpha"))
	assert.False(t, re.MatchString("Run at 2024-01-05 10:00:00 on host beta"))
}

func TestFragments(t *testing.T) {
	got := Fragments([]string{"2024-01-04", "2024-01-05"})
	if diff := cmp.Diff([]string{`2024-01-\d{2}`}, got); diff != "" {
		t.Errorf("Fragments() mismatch (-want +got):\n%s", diff)
	}
	re := regexp.MustCompile(got[0])
	assert.True(t, re.MatchString("built 2024-01-06 ok"))
}

func TestShape_ImplementsGeneralizer(t *testing.T) {
	var g Generalizer = Shape{}
	assert.Equal(t, Patterns([]string{"a"}), g.Patterns([]string{"a"}))
}
