package keyboard

import "image"

// KeyRect places a slot on screen.
type KeyRect struct {
	Slot KeySlot
	Rect image.Rectangle
}

// Geometry lays slots out inside bounds the way a piano looks: naturals share
// the width evenly and each raised key straddles the seam after the natural
// key that precedes it. Naturals come first in the result, raised keys after,
// so drawing in order paints raised keys on top.
func Geometry(slots []KeySlot, bounds image.Rectangle) []KeyRect {
	naturals := Naturals(slots)
	if len(naturals) == 0 || bounds.Empty() {
		return nil
	}
	w := bounds.Dx() / len(naturals)
	raisedW := w * 3 / 5
	raisedH := bounds.Dy() * 3 / 5

	out := make([]KeyRect, 0, len(slots))
	var raised []KeyRect
	for i, n := range naturals {
		x := bounds.Min.X + i*w
		out = append(out, KeyRect{Slot: n, Rect: image.Rect(x, bounds.Min.Y, x+w, bounds.Max.Y)})
		if !n.HasRaisedNeighbor || n.Index+1 >= len(slots) {
			continue
		}
		seam := x + w
		raised = append(raised, KeyRect{
			Slot: slots[n.Index+1],
			Rect: image.Rect(seam-raisedW/2, bounds.Min.Y, seam-raisedW/2+raisedW, bounds.Min.Y+raisedH),
		})
	}
	return append(out, raised...)
}

// HitTest returns the key under pt. Raised keys win where they overlap a
// natural key.
func HitTest(rects []KeyRect, pt image.Point) (KeySlot, bool) {
	for i := len(rects) - 1; i >= 0; i-- {
		if pt.In(rects[i].Rect) {
			return rects[i].Slot, true
		}
	}
	return KeySlot{}, false
}
