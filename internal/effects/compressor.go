package effects

import "math"

type CompressorSettings struct {
	ThresholdDB float64
	Ratio       float64 // e.g. 4 for 4:1; values below 1 are treated as 1
	AttackMs    float64
	ReleaseMs   float64
	MakeupDB    float64
}

// Compressor is a feed-forward peak compressor with one envelope per
// channel.
type Compressor struct {
	threshold float32
	slope     float64
	attack    float32
	release   float32
	makeup    float32
	env       [2]float32
}

func NewCompressor(sampleRate int, s CompressorSettings) *Compressor {
	ratio := math.Max(s.Ratio, 1)
	return &Compressor{
		threshold: dbToGain(s.ThresholdDB),
		slope:     1/ratio - 1,
		attack:    coefficient(s.AttackMs, sampleRate),
		release:   coefficient(s.ReleaseMs, sampleRate),
		makeup:    dbToGain(s.MakeupDB),
	}
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	return l * c.gain(0, l), r * c.gain(1, r)
}

func (c *Compressor) gain(ch int, x float32) float32 {
	level := float32(math.Abs(float64(x)))
	if level > c.env[ch] {
		c.env[ch] += c.attack * (level - c.env[ch])
	} else {
		c.env[ch] += c.release * (level - c.env[ch])
	}
	if c.env[ch] <= c.threshold {
		return c.makeup
	}
	over := float64(c.env[ch] / c.threshold)
	return float32(math.Pow(over, c.slope)) * c.makeup
}

func (c *Compressor) Reset() {
	c.env = [2]float32{}
}

func dbToGain(db float64) float32 {
	return float32(math.Pow(10, db/20))
}

// coefficient is the one-pole smoothing factor for a time constant.
func coefficient(ms float64, sampleRate int) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1 - math.Exp(-1/(ms*float64(sampleRate)/1000)))
}
