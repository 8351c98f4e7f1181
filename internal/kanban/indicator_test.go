package kanban

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestIndicator(t *testing.T) {
	indicators := []Indicator{
		{Before: "a", Top: 0},
		{Before: "b", Top: 100},
		{Before: AppendMarker, Top: 200},
	}

	tests := []struct {
		name    string
		cursorY int
		want    string
	}{
		{"above first marker", 10, "a"},
		{"between first and second", 120, "b"},
		{"just under the offset", 149, "b"},
		{"exactly on the offset", 150, AppendMarker},
		{"below everything", 500, AppendMarker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NearestIndicator(tt.cursorY, indicators, DistanceOffset)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Before)
		})
	}
}

func TestNearestIndicatorEmpty(t *testing.T) {
	_, ok := NearestIndicator(3, nil, 0)
	assert.False(t, ok)
}

func TestIndicatorsForColumn(t *testing.T) {
	b := newBoard(&fakeBackend{})

	got := b.Indicators("pending", []int{2, 5})
	require.Len(t, got, 4)
	assert.Equal(t, []string{"1", "3", "4", AppendMarker}, []string{got[0].Before, got[1].Before, got[2].Before, got[3].Before})
	assert.Equal(t, []int{2, 5, 6, 7}, []int{got[0].Top, got[1].Top, got[2].Top, got[3].Top})

	empty := b.Indicators("completed", nil)
	require.Len(t, empty, 1)
	assert.Equal(t, AppendMarker, empty[0].Before)
}
