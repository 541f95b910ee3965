package wamp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGeneratorSequential(t *testing.T) {
	g := NewIDGenerator()
	first := g.Next()
	second := g.Next()
	assert.Equal(t, first+1, second)
}

func TestIDGeneratorWraparound(t *testing.T) {
	g := NewIDGenerator()
	g.next = uint64(MaxID) - 2
	last := g.Next()
	assert.Equal(t, MaxID-1, last)
	atMax := g.Next()
	assert.Equal(t, MaxID, atMax)
	wrapped := g.Next()
	assert.Equal(t, ID(1), wrapped)
}

func TestIDGeneratorReset(t *testing.T) {
	g := NewIDGenerator()
	g.Next()
	g.Next()
	g.Reset()
	assert.Equal(t, ID(1), g.Next())
}
