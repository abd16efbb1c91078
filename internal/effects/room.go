package effects

type RoomSettings struct {
	Size  float32 // 0..1, scales the delay lines
	Decay float32 // comb feedback, capped at 0.95
	Wet   float32 // 0..1
}

// Room is a Schroeder reverb: four parallel combs into two series allpasses.
type Room struct {
	combs   [4]delayLine
	allpass [2]delayLine
	wet     float32
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

// Comb lengths relative to the base length; mutually non-harmonic.
var (
	combRatios    = [4]int{1000, 1117, 1271, 1437}
	allpassRatios = [2]int{347, 213}
)

func NewRoom(sampleRate int, s RoomSettings) *Room {
	base := max(int(float32(sampleRate)*clamp(s.Size, 0, 1)*0.05), 10)
	decay := clamp(s.Decay, 0, 0.95)
	r := &Room{wet: clamp(s.Wet, 0, 1)}
	for i, ratio := range combRatios {
		r.combs[i] = delayLine{buf: make([]float32, base*ratio/1000), fb: decay}
	}
	for i, ratio := range allpassRatios {
		r.allpass[i] = delayLine{buf: make([]float32, max(base*ratio/1000, 1)), fb: 0.5}
	}
	return r
}

func (r *Room) Process(l, rt float32) (float32, float32) {
	in := (l + rt) * 0.5
	var tail float32
	for i := range r.combs {
		tail += r.combs[i].comb(in)
	}
	tail *= 0.25
	for i := range r.allpass {
		tail = r.allpass[i].allpass(tail)
	}
	dry := 1 - r.wet
	return l*dry + tail*r.wet, rt*dry + tail*r.wet
}

func (r *Room) Reset() {
	for i := range r.combs {
		r.combs[i].clear()
	}
	for i := range r.allpass {
		r.allpass[i].clear()
	}
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	delayed := d.buf[d.pos]
	d.buf[d.pos] = in + delayed*d.fb
	d.advance()
	return delayed - in
}

func (d *delayLine) advance() {
	if d.pos++; d.pos >= len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) clear() {
	clear(d.buf)
	d.pos = 0
}
