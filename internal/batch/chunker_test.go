package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Sizes(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		limit    int
		expected []int
	}{
		{"delete 2500", 2500, MaxDeleteBatchSize, []int{1000, 1000, 500}},
		{"exact multiple", 30, 15, []int{15, 15}},
		{"single partial", 7, 15, []int{7}},
		{"one item", 1, 1000, []int{1}},
		{"limit one", 3, 1, []int{1, 1, 1}},
		{"empty", 0, 15, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(makeIDs(tt.n), tt.limit)

			var sizes []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			assert.Equal(t, tt.expected, sizes)
			assert.Len(t, chunks, chunkCount(tt.n, tt.limit))
		})
	}
}

func TestChunk_NilInput(t *testing.T) {
	assert.Empty(t, Chunk(nil, 10))
}

func TestChunk_PreservesOrder(t *testing.T) {
	ids := makeIDs(25)
	chunks := Chunk(ids, 10)
	require.Len(t, chunks, 3)

	var flat []string
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	assert.Equal(t, ids, flat)
}

func TestChunk_CapacityIsCapped(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	chunks := Chunk(ids, 2)
	require.Len(t, chunks, 2)

	_ = append(chunks[0], "x")
	assert.Equal(t, []string{"c", "d"}, chunks[1])
	assert.Equal(t, 2, cap(chunks[0]))
}

func TestChunk_NonPositiveLimit(t *testing.T) {
	assert.Len(t, Chunk(makeIDs(3), 0), 3)
}
