package eeg

import (
	"math"
	"math/rand"
	"strconv"
)

const sampleRate = 128.0

// Synthetic generates labelled trials with a class dependent oscillation:
// class c has a dominant sinusoid at 8+4c Hz with per channel amplitude
// plus gaussian noise. Good enough to exercise training end to end.
func Synthetic(rng *rand.Rand, trials, channels, samples, classes int) []Trial {
	out := make([]Trial, trials)
	for i := range out {
		label := int32(rng.Intn(classes))
		freq := 8.0 + 4.0*float64(label)
		phase := rng.Float64() * 2 * math.Pi
		sig := make([][]float32, channels)
		for ch := range sig {
			amp := 1.0 / float64(ch+1)
			row := make([]float32, samples)
			for s := range row {
				t := float64(s) / sampleRate
				row[s] = float32(amp*math.Sin(2*math.Pi*freq*t+phase) + 0.2*rng.NormFloat64())
			}
			sig[ch] = row
		}
		out[i] = Trial{Label: label, Target: float32(label), Signal: sig}
	}
	return out
}

// ClassNames returns "0".."n-1" as class labels.
func ClassNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}
