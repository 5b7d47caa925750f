package random

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_Length(t *testing.T) {
	g := New()

	for _, length := range []int{1, 16, DefaultLength, 100} {
		s, err := g.String(length)
		require.NoError(t, err)
		assert.Len(t, s, length)
	}
}

func TestString_Alphabet(t *testing.T) {
	g := New()

	s, err := g.String(1000)
	require.NoError(t, err)

	for _, r := range s {
		assert.True(t, strings.ContainsRune(alphabet, r), "unexpected symbol %q", r)
	}
}

func TestString_InvalidLength(t *testing.T) {
	g := New()

	_, err := g.String(0)
	assert.Error(t, err)

	_, err = g.String(-5)
	assert.Error(t, err)
}

func TestString_Unique(t *testing.T) {
	g := New()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s, err := g.String(DefaultLength)
		require.NoError(t, err)
		require.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
	}
}

func TestString_DeterministicSource(t *testing.T) {
	src := bytes.Repeat([]byte{0}, DefaultLength)

	g := NewFromSource(bytes.NewReader(src))
	s, err := g.String(DefaultLength)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("A", DefaultLength), s)
}

func TestString_SourceExhausted(t *testing.T) {
	g := NewFromSource(bytes.NewReader([]byte{1, 2, 3}))

	_, err := g.String(10)
	assert.Error(t, err)
}
