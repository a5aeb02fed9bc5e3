package report

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(id string) *Session {
	return &Session{
		ID:         id,
		Command:    "echo hi",
		Cwd:        "/work",
		Iterations: 2,
		Duration:   1500 * time.Millisecond,
		References: []Reference{
			{Name: "STDOUT", Copy: "/work/ref/echo/STDOUT", Patterns: []string{"myhost"}},
			{Name: "out.txt", Source: "/work/out.txt", Copy: "/work/ref/echo/out.txt", Removals: []string{"x"}},
		},
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	require.NoError(t, store.Save(sample("abc")))

	got, err := store.Load("abc")
	require.NoError(t, err)
	assert.Equal(t, sample("abc"), got)

	_, err = store.Load("missing")
	assert.Error(t, err)
}

func TestDiskStore_LazyTempDir(t *testing.T) {
	store := NewDiskStore("")
	dir, err := store.Dir()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	again, err := store.Dir()
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}

type countingStore struct {
	saved map[string]*Session
	loads int
}

func (c *countingStore) Save(s *Session) error {
	c.saved[s.ID] = s
	return nil
}

func (c *countingStore) Load(id string) (*Session, error) {
	c.loads++
	if s, ok := c.saved[id]; ok {
		return s, nil
	}
	return nil, errors.New("not found")
}

func TestLRUStore(t *testing.T) {
	back := &countingStore{saved: map[string]*Session{}}
	lru := NewLRUStore(2, back)

	require.NoError(t, lru.Save(sample("a")))
	require.NoError(t, lru.Save(sample("b")))
	_, err := lru.Load("a")
	require.NoError(t, err)
	assert.Equal(t, 0, back.loads)

	require.NoError(t, lru.Save(sample("c"))) // evicts b
	assert.Equal(t, 2, lru.Len())

	_, err = lru.Load("b")
	require.NoError(t, err)
	assert.Equal(t, 1, back.loads)

	_, err = lru.Load("zzz")
	assert.Error(t, err)
}

func TestSession_Reference(t *testing.T) {
	s := sample("x")
	for _, key := range []string{"out.txt", "/work/out.txt", "/work/ref/echo/out.txt"} {
		r, err := s.Reference(key)
		require.NoError(t, err, key)
		assert.Equal(t, "out.txt", r.Name)
	}
	_, err := s.Reference("nope")
	assert.EqualError(t, err, `session x has no reference "nope"`)
	assert.Equal(t, []string{"STDOUT", "out.txt"}, s.ReferenceNames())
	assert.Equal(t, 2, s.ExclusionCount())
}
