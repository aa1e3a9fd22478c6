package eeg

import (
	"github.com/pkg/errors"
)

// Trial is one contiguous labelled segment of a recording with per channel
// sample data.
type Trial struct {
	Label  int32
	Target float32
	Signal [][]float32
}

func (t Trial) Samples() int {
	if len(t.Signal) == 0 {
		return 0
	}
	return len(t.Signal[0])
}

// Windower cuts trials into fixed size windows. Stride is the offset
// between consecutive window starts. If DropLast is set a final partial
// window is discarded, else it is shifted back so that it ends on the last
// sample of the trial.
type Windower struct {
	Size     int
	Stride   int
	DropLast bool
}

// Split cuts each trial into windows and builds the windowed data set.
// Window starts are strictly increasing within each trial and the window
// number restarts from 0 at each trial boundary.
func (w Windower) Split(trials []Trial, classes []string) (*Data, error) {
	if w.Size <= 0 || w.Stride <= 0 {
		return nil, errors.Errorf("eeg: invalid window size %d stride %d", w.Size, w.Stride)
	}
	if len(trials) == 0 {
		return nil, errors.New("eeg: no trials to window")
	}
	channels := len(trials[0].Signal)
	var (
		windows [][]float32
		labels  []int32
		targets []float32
		inds    []WindowIndex
	)
	haveTargets := false
	for it, trial := range trials {
		if len(trial.Signal) != channels {
			return nil, errors.Errorf("eeg: trial %d has %d channels, expect %d", it, len(trial.Signal), channels)
		}
		n := trial.Samples()
		if n < w.Size {
			return nil, errors.Errorf("eeg: trial %d has %d samples, window size is %d", it, n, w.Size)
		}
		starts := []int{}
		last := 0
		for start := 0; start+w.Size <= n; start += w.Stride {
			starts = append(starts, start)
			last = start
		}
		if !w.DropLast && last+w.Size < n {
			starts = append(starts, n-w.Size)
		}
		for iw, start := range starts {
			win := make([]float32, channels*w.Size)
			for ch := 0; ch < channels; ch++ {
				copy(win[ch*w.Size:], trial.Signal[ch][start:start+w.Size])
			}
			windows = append(windows, win)
			labels = append(labels, trial.Label)
			targets = append(targets, trial.Target)
			inds = append(inds, WindowIndex{
				Trial:  int32(it),
				Number: int32(iw),
				Start:  int32(start),
				Stop:   int32(start + w.Size),
			})
		}
		if trial.Target != 0 {
			haveTargets = true
		}
	}
	d, err := NewData(classes, []int{channels, w.Size}, labels, inds, windows)
	if err != nil {
		return nil, err
	}
	if haveTargets {
		d.Targets = targets
	}
	return d, nil
}
