// Package eeg has the windowed EEG data model: labelled signal windows cut
// from trials together with their trial and sample bookkeeping.
package eeg

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/marialco/braindecode-1/stats"
	"github.com/pkg/errors"
)

// WindowIndex locates one window within its trial. Number is the position
// of the window in the trial starting from 0, Start and Stop are sample
// offsets relative to the start of the recording.
type WindowIndex struct {
	Trial  int32
	Number int32
	Start  int32
	Stop   int32
}

// EEG data set of fixed size signal windows which implements the nnet.Data
// interface.
type Data struct {
	DataHead
	Windows [][]float32
}

// Embedded header which is gob encoded first when saving to file
type DataHead struct {
	Class   []string
	Dims    []int
	Labels  []int32
	Targets []float32
	Inds    []WindowIndex
	Mean    []float32
	StdDev  []float32
}

// Create a new windowed data set. dims is [channels, samples] per window.
func NewData(classes []string, dims []int, labels []int32, inds []WindowIndex, windows [][]float32) (*Data, error) {
	if len(labels) != len(windows) || len(inds) != len(windows) {
		return nil, errors.Errorf("eeg: have %d windows, %d labels, %d indexes", len(windows), len(labels), len(inds))
	}
	nfeat := prod(dims)
	for i, w := range windows {
		if len(w) != nfeat {
			return nil, errors.Errorf("eeg: window %d has %d values, expect %d", i, len(w), nfeat)
		}
	}
	return &Data{
		DataHead: DataHead{Class: classes, Dims: dims, Labels: labels, Inds: inds},
		Windows:  windows,
	}, nil
}

// Len function returns number of windows
func (d *Data) Len() int { return len(d.Windows) }

// Classes returns the class names
func (d *Data) Classes() []string { return d.Class }

// Shape returns channels, samples per window
func (d *Data) Shape() []int { return d.Dims }

// Label returns the class for each of the given windows
func (d *Data) Label(index []int, label []int32) {
	for i, ix := range index {
		label[i] = d.Labels[ix]
	}
}

// Target returns the regression target for each of the given windows,
// falling back to the class label when no explicit targets are set.
func (d *Data) Target(index []int, buf []float32) {
	for i, ix := range index {
		if d.Targets != nil {
			buf[i] = d.Targets[ix]
		} else {
			buf[i] = float32(d.Labels[ix])
		}
	}
}

// Window returns the index bookkeeping for window i.
func (d *Data) Window(i int) WindowIndex {
	return d.Inds[i]
}

// Trials returns the number of distinct trials in the set.
func (d *Data) Trials() int {
	seen := map[int32]bool{}
	for _, ix := range d.Inds {
		seen[ix.Trial] = true
	}
	return len(seen)
}

// Input copies the signal for the given windows into buf
func (d *Data) Input(index []int, buf []float32) {
	nfeat := d.nfeat()
	for i, ix := range index {
		copy(buf[i*nfeat:], d.Windows[ix])
	}
}

// Slice returns windows from start to end
func (d *Data) Slice(start, end int) *Data {
	data := *d
	data.Labels = append([]int32{}, d.Labels[start:end]...)
	data.Inds = append([]WindowIndex{}, d.Inds[start:end]...)
	data.Windows = append([][]float32{}, d.Windows[start:end]...)
	if d.Targets != nil {
		data.Targets = append([]float32{}, d.Targets[start:end]...)
	}
	return &data
}

func (d *Data) nfeat() int { return prod(d.Dims) }

// Encode data to binary file
func (d *Data) Encode(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(&d.DataHead); err != nil {
		return errors.Wrap(err, "eeg: error encoding header")
	}
	for i, win := range d.Windows {
		if err := enc.Encode(win); err != nil {
			return errors.Wrapf(err, "eeg: error encoding window %d", i)
		}
	}
	return nil
}

// Decode data from binary file
func (d *Data) Decode(r io.Reader) error {
	d.DataHead = DataHead{}
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&d.DataHead); err != nil {
		return errors.Wrap(err, "eeg: error decoding header")
	}
	d.Windows = make([][]float32, d.Len())
	for i := range d.Windows {
		if err := dec.Decode(&d.Windows[i]); err != nil {
			return errors.Wrapf(err, "eeg: error decoding window %d", i)
		}
	}
	return nil
}

// Normalize standardizes every channel in place to (x-Mean)/StdDev using
// the stats stored in the header. No-op when the stats are not set.
func (d *Data) Normalize() {
	if d.Mean == nil || d.StdDev == nil {
		return
	}
	samples := d.Dims[1]
	for _, win := range d.Windows {
		for ch, mean := range d.Mean {
			std := d.StdDev[ch]
			if std == 0 {
				std = 1
			}
			row := win[ch*samples : (ch+1)*samples]
			for i := range row {
				row[i] = (row[i] - mean) / std
			}
		}
	}
}

// Calculate per channel mean and stddev over all windows
func GetStats(d *Data) (mean, std []float32) {
	channels := d.Dims[0]
	samples := d.Dims[1]
	stat := make([]*stats.Average, channels)
	for i := range stat {
		stat[i] = new(stats.Average)
	}
	for _, win := range d.Windows {
		for ch, s := range stat {
			for _, val := range win[ch*samples : (ch+1)*samples] {
				s.Add(float64(val))
			}
		}
	}
	mean = make([]float32, channels)
	std = make([]float32, channels)
	for i, s := range stat {
		mean[i] = float32(s.Mean)
		std[i] = float32(s.StdDev)
	}
	fmt.Printf("mean = %.2f stddev = %.2f\n", mean, std)
	return mean, std
}

func prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
