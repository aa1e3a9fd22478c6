package aug

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// batchDims pulls apart the [batch, channels, time] shape.
func batchDims(x *tensor.Dense) (batch, channels, samples int, err error) {
	shp := x.Shape()
	if len(shp) != 3 {
		return 0, 0, 0, errors.Errorf("aug: expect signal shape [batch, channels, time], got %v", shp)
	}
	return shp[0], shp[1], shp[2], nil
}

func cloneSignal(x *tensor.Dense) (*tensor.Dense, []float32) {
	out := x.Clone().(*tensor.Dense)
	return out, out.Data().([]float32)
}

// FillConstant replaces every signal value with k. Mainly useful to probe
// pipeline behaviour.
func FillConstant(k float32) Operation {
	return func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error) {
		out, data := cloneSignal(x)
		for i := range data {
			data[i] = k
		}
		return out, y, nil
	}
}

// SignFlip negates the whole signal.
func SignFlip() Operation {
	return func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error) {
		out, data := cloneSignal(x)
		for i := range data {
			data[i] = -data[i]
		}
		return out, y, nil
	}
}

// TimeReverse flips each channel of each sample along the time axis.
func TimeReverse() Operation {
	return func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error) {
		batch, channels, samples, err := batchDims(x)
		if err != nil {
			return nil, nil, err
		}
		out, data := cloneSignal(x)
		for b := 0; b < batch; b++ {
			for ch := 0; ch < channels; ch++ {
				row := data[(b*channels+ch)*samples : (b*channels+ch+1)*samples]
				for i, j := 0, samples-1; i < j; i, j = i+1, j-1 {
					row[i], row[j] = row[j], row[i]
				}
			}
		}
		return out, y, nil
	}
}

// GaussianNoise adds white noise with the given standard deviation.
func GaussianNoise(std float64) Operation {
	return func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error) {
		out, data := cloneSignal(x)
		for i := range data {
			data[i] += float32(rng.NormFloat64() * std)
		}
		return out, y, nil
	}
}

// ChannelsDropout zeroes each channel of each sample independently with
// probability p.
func ChannelsDropout(p float64) Operation {
	return func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error) {
		batch, channels, samples, err := batchDims(x)
		if err != nil {
			return nil, nil, err
		}
		out, data := cloneSignal(x)
		for b := 0; b < batch; b++ {
			for ch := 0; ch < channels; ch++ {
				if rng.Float64() >= p {
					continue
				}
				row := data[(b*channels+ch)*samples : (b*channels+ch+1)*samples]
				for i := range row {
					row[i] = 0
				}
			}
		}
		return out, y, nil
	}
}

// SmoothTimeMask zeroes a random stretch of maskLen samples per batch
// element with cosine ramps at the mask edges.
func SmoothTimeMask(maskLen int) Operation {
	return func(x, y *tensor.Dense, rng *rand.Rand) (*tensor.Dense, *tensor.Dense, error) {
		batch, channels, samples, err := batchDims(x)
		if err != nil {
			return nil, nil, err
		}
		if maskLen <= 0 || maskLen > samples {
			return nil, nil, errors.Errorf("aug: mask length %d out of range for %d samples", maskLen, samples)
		}
		out, data := cloneSignal(x)
		ramp := maskLen / 4
		for b := 0; b < batch; b++ {
			start := rng.Intn(samples - maskLen + 1)
			for ch := 0; ch < channels; ch++ {
				row := data[(b*channels+ch)*samples : (b*channels+ch+1)*samples]
				for i := 0; i < maskLen; i++ {
					scale := float32(0)
					if ramp > 0 && i < ramp {
						scale = float32(0.5 + 0.5*math.Cos(math.Pi*float64(i)/float64(ramp)))
					} else if ramp > 0 && i >= maskLen-ramp {
						scale = float32(0.5 + 0.5*math.Cos(math.Pi*float64(maskLen-1-i)/float64(ramp)))
					}
					row[start+i] *= scale
				}
			}
		}
		return out, y, nil
	}
}
