package nnet

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Linear is a single dense layer reference module: it flattens the signal
// window and applies weights plus bias. W is [in, out] scaled by
// 1/sqrt(nin) at creation, B is [out].
type Linear struct {
	W       *tensor.Dense
	B       *tensor.Dense
	In, Out int
}

func NewLinear(in, out int, rng *rand.Rand) *Linear {
	w := make([]float32, in*out)
	scale := float32(1 / math.Sqrt(float64(in)))
	for i := range w {
		w[i] = scale * float32(rng.NormFloat64())
	}
	return &Linear{
		W:   tensor.New(tensor.WithShape(in, out), tensor.WithBacking(w)),
		B:   tensor.New(tensor.WithShape(out), tensor.WithBacking(make([]float32, out))),
		In:  in,
		Out: out,
	}
}

// Fprop flattens x to [batch, in] and returns x·W + b as [batch, out].
func (l *Linear) Fprop(x *tensor.Dense) (*tensor.Dense, error) {
	x2, err := l.flatten(x)
	if err != nil {
		return nil, err
	}
	out, err := x2.MatMul(l.W)
	if err != nil {
		return nil, err
	}
	l.addBias(out)
	return out, nil
}

// the tensor package has no broadcast add, so the bias row is added in place
func (l *Linear) addBias(out *tensor.Dense) {
	data := out.Data().([]float32)
	bias := l.B.Data().([]float32)
	for i := range data {
		data[i] += bias[i%l.Out]
	}
}

// Step does one forward and backward pass and updates the weights in
// place, returning the batch loss prior to the update.
func (l *Linear) Step(x, y *tensor.Dense, loss Loss, eta float64) (float64, error) {
	yPred, err := l.Fprop(x)
	if err != nil {
		return 0, err
	}
	lossVal, err := loss.Loss(yPred, y)
	if err != nil {
		return 0, err
	}
	grad, err := loss.Grad(yPred, y)
	if err != nil {
		return 0, err
	}
	x2, err := l.flatten(x)
	if err != nil {
		return 0, err
	}
	dW, dB, err := denseGrads(x2, grad)
	if err != nil {
		return 0, err
	}
	sgdUpdate(l.W, dW, eta)
	sgdUpdate(l.B, dB, eta)
	return lossVal, nil
}

func (l *Linear) flatten(x *tensor.Dense) (*tensor.Dense, error) {
	shp := x.Shape()
	batch := shp[0]
	nfeat := 1
	for _, d := range shp[1:] {
		nfeat *= d
	}
	if nfeat != l.In {
		return nil, errors.Errorf("nnet: input shape %v does not match %d weights", shp, l.In)
	}
	return tensor.New(tensor.WithShape(batch, l.In), tensor.WithBacking(x.Data().([]float32))), nil
}

// denseGrads returns the weight gradient xᵀ·g and the bias gradient, the
// column sums of g.
func denseGrads(x2, g *tensor.Dense) (dW, dB *tensor.Dense, err error) {
	xT := x2.Clone().(*tensor.Dense)
	if err = xT.T(); err != nil {
		return nil, nil, err
	}
	if err = xT.Transpose(); err != nil {
		return nil, nil, err
	}
	if dW, err = xT.MatMul(g); err != nil {
		return nil, nil, err
	}
	batch, out := g.Shape()[0], g.Shape()[1]
	gd := g.Data().([]float32)
	bias := make([]float32, out)
	for b := 0; b < batch; b++ {
		for o := 0; o < out; o++ {
			bias[o] += gd[b*out+o]
		}
	}
	dB = tensor.New(tensor.WithShape(out), tensor.WithBacking(bias))
	return dW, dB, nil
}

// in place w -= eta * dw
func sgdUpdate(w, dw *tensor.Dense, eta float64) {
	wd := w.Data().([]float32)
	gd := dw.Data().([]float32)
	for i := range wd {
		wd[i] -= float32(eta) * gd[i]
	}
}

// NewModule builds the reference module for the given config and input
// shape. outputs is the number of module outputs, i.e. the number of
// classes for a classifier or the target dimension for a regressor.
func NewModule(conf Config, shape []int, outputs int, rng *rand.Rand) (Module, error) {
	if len(shape) != 2 {
		return nil, errors.Errorf("nnet: expect input shape [channels, samples], got %v", shape)
	}
	if !conf.Cropped {
		return NewLinear(shape[0]*shape[1], outputs, rng), nil
	}
	if conf.CropLen <= 0 || conf.CropStride <= 0 {
		return nil, errors.Errorf("nnet: cropped module needs CropLen and CropStride set, got %d %d",
			conf.CropLen, conf.CropStride)
	}
	if conf.CropLen > shape[1] {
		return nil, errors.Errorf("nnet: crop length %d exceeds window of %d samples", conf.CropLen, shape[1])
	}
	return NewSlidingLinear(shape[0], conf.CropLen, conf.CropStride, outputs, rng), nil
}

// SlidingLinear applies a dense layer to consecutive crops of the input
// window, yielding one prediction per crop: the cropped decoding module.
// Output shape is [batch, out, crops].
type SlidingLinear struct {
	Lin             *Linear
	Channels        int
	CropLen, Stride int
}

func NewSlidingLinear(channels, cropLen, stride, out int, rng *rand.Rand) *SlidingLinear {
	return &SlidingLinear{
		Lin:      NewLinear(channels*cropLen, out, rng),
		Channels: channels,
		CropLen:  cropLen,
		Stride:   stride,
	}
}

// Crops for a window of the given length.
func (m *SlidingLinear) Crops(samples int) int {
	if samples < m.CropLen {
		return 0
	}
	return (samples-m.CropLen)/m.Stride + 1
}

// Fprop returns [batch, out, crops].
func (m *SlidingLinear) Fprop(x *tensor.Dense) (*tensor.Dense, error) {
	batch, samples, crops, err := m.cropDims(x)
	if err != nil {
		return nil, err
	}
	cm := m.gatherCrops(x, batch, samples, crops)
	prod, err := cm.MatMul(m.Lin.W)
	if err != nil {
		return nil, err
	}
	m.Lin.addBias(prod)
	// reorder rows [b*crops+k, o] into [b, o, k]
	nout := m.Lin.Out
	src := prod.Data().([]float32)
	out := make([]float32, batch*nout*crops)
	for b := 0; b < batch; b++ {
		for k := 0; k < crops; k++ {
			for o := 0; o < nout; o++ {
				out[(b*nout+o)*crops+k] = src[(b*crops+k)*nout+o]
			}
		}
	}
	return tensor.New(tensor.WithShape(batch, nout, crops), tensor.WithBacking(out)), nil
}

// Step trains on the crop averaged predictions: the gradient of the
// averaged output is distributed equally over the crops.
func (m *SlidingLinear) Step(x, y *tensor.Dense, loss Loss, eta float64) (float64, error) {
	batch, samples, crops, err := m.cropDims(x)
	if err != nil {
		return 0, err
	}
	yPred, err := m.Fprop(x)
	if err != nil {
		return 0, err
	}
	avg, err := AggregateCrops(yPred)
	if err != nil {
		return 0, err
	}
	lossVal, err := loss.Loss(avg, y)
	if err != nil {
		return 0, err
	}
	grad, err := loss.Grad(avg, y)
	if err != nil {
		return 0, err
	}
	nout := m.Lin.Out
	gd := grad.Data().([]float32)
	g2 := make([]float32, batch*crops*nout)
	for b := 0; b < batch; b++ {
		for k := 0; k < crops; k++ {
			for o := 0; o < nout; o++ {
				g2[(b*crops+k)*nout+o] = gd[b*nout+o] / float32(crops)
			}
		}
	}
	gT := tensor.New(tensor.WithShape(batch*crops, nout), tensor.WithBacking(g2))
	cm := m.gatherCrops(x, batch, samples, crops)
	dW, dB, err := denseGrads(cm, gT)
	if err != nil {
		return 0, err
	}
	sgdUpdate(m.Lin.W, dW, eta)
	sgdUpdate(m.Lin.B, dB, eta)
	return lossVal, nil
}

func (m *SlidingLinear) cropDims(x *tensor.Dense) (batch, samples, crops int, err error) {
	shp := x.Shape()
	if len(shp) != 3 || shp[1] != m.Channels {
		return 0, 0, 0, errors.Errorf("nnet: expect input [batch, %d, time], got %v", m.Channels, shp)
	}
	batch, samples = shp[0], shp[2]
	crops = m.Crops(samples)
	if crops == 0 {
		return 0, 0, 0, errors.Errorf("nnet: window of %d samples is smaller than crop length %d", samples, m.CropLen)
	}
	return batch, samples, crops, nil
}

// gatherCrops copies the sliding crops into a [batch*crops, in] matrix so
// that all crop predictions come from a single matrix product.
func (m *SlidingLinear) gatherCrops(x *tensor.Dense, batch, samples, crops int) *tensor.Dense {
	in := m.Channels * m.CropLen
	buf := make([]float32, batch*crops*in)
	data := x.Data().([]float32)
	for b := 0; b < batch; b++ {
		for k := 0; k < crops; k++ {
			row := buf[(b*crops+k)*in : (b*crops+k+1)*in]
			start := k * m.Stride
			for ch := 0; ch < m.Channels; ch++ {
				sig := data[(b*m.Channels+ch)*samples : (b*m.Channels+ch+1)*samples]
				copy(row[ch*m.CropLen:(ch+1)*m.CropLen], sig[start:start+m.CropLen])
			}
		}
	}
	return tensor.New(tensor.WithShape(batch*crops, in), tensor.WithBacking(buf))
}
