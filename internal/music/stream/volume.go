package stream

import "math"

// logExponent maps a linear volume level onto perceived loudness.
const logExponent = 1.660964

// LogarithmicGain converts a volume level (1.0 is unity) to a PCM multiplier.
func LogarithmicGain(level float64) float64 {
	if level <= 0 {
		return 0
	}
	return math.Pow(level, logExponent)
}

func applyGain(samples []int16, gain float64) {
	if gain == 1 {
		return
	}
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
