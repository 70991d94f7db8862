package dsu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFindSingletons(t *testing.T) {
	d := New(5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, d.Find(i))
	}
	assert.False(t, d.Connected(0, 1))
}

func TestUnionMerges(t *testing.T) {
	d := New(6)
	require.True(t, d.Union(0, 1))
	require.True(t, d.Union(1, 2))
	require.False(t, d.Union(0, 2), "already connected")

	assert.True(t, d.Connected(0, 2))
	assert.False(t, d.Connected(0, 3))

	d.Union(3, 4)
	groups := d.Components()
	assert.Len(t, groups, 3) // {0,1,2}, {3,4}, {5}

	var sizes []int
	for _, members := range groups {
		sizes = append(sizes, len(members))
	}
	assert.Contains(t, sizes, 3)
	assert.Contains(t, sizes, 2)
	assert.Contains(t, sizes, 1)
}

func TestUnionByRankKeepsTreesShallow(t *testing.T) {
	d := New(8)
	for i := 1; i < 8; i++ {
		d.Union(0, i)
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, d.Find(0), d.Find(i))
	}
}
