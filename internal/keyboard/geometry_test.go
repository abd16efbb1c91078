package keyboard

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry(t *testing.T) {
	slots := Layout(nil)
	rects := Geometry(slots, image.Rect(0, 0, 1500, 200))
	require.Len(t, rects, 25)

	for i := 0; i < 15; i++ {
		assert.False(t, rects[i].Slot.Raised)
		assert.Equal(t, image.Rect(i*100, 0, i*100+100, 200), rects[i].Rect)
	}
	// C# straddles the C|D seam.
	assert.Equal(t, "C#", rects[15].Slot.Note)
	assert.Equal(t, image.Rect(70, 0, 130, 120), rects[15].Rect)
	assert.Nil(t, Geometry(slots, image.Rectangle{}))
}

func TestHitTest(t *testing.T) {
	slots := Layout(nil)
	rects := Geometry(slots, image.Rect(0, 0, 1500, 200))

	cases := []struct {
		pt    image.Point
		index int
	}{
		{image.Pt(10, 150), 0},   // C, below the raised keys
		{image.Pt(100, 50), 1},   // C# on top of the C|D seam
		{image.Pt(100, 150), 2},  // D under C#
		{image.Pt(1450, 10), 24}, // final C
	}
	for _, tc := range cases {
		s, ok := HitTest(rects, tc.pt)
		require.True(t, ok, "%v", tc.pt)
		assert.Equal(t, tc.index, s.Index, "%v", tc.pt)
	}
	_, ok := HitTest(rects, image.Pt(1600, 10))
	assert.False(t, ok)
}
