// Package stats has running statistics used to track training metrics.
package stats

import (
	"fmt"
	"html/template"
	"math"
)

// Calc exponentional moving average
type EMA float64

func (e EMA) Add(val, n float64) float64 {
	if e == 0 {
		return val
	}
	k := 2.0 / (n + 1.0)
	return val*k + float64(e)*(1-k)
}

// Running mean and stddev as per http://www.johndcook.com/blog/standard_deviation/
type Average struct {
	Count, Mean float64
	Var, StdDev float64
	oldM, oldV  float64
}

func (s *Average) Add(x float64) {
	s.Count++
	if s.Count == 1 {
		s.oldM, s.Mean = x, x
		s.oldV = 0
	} else {
		s.Mean = s.oldM + (x-s.oldM)/s.Count
		s.Var = s.oldV + (x-s.oldM)*(x-s.Mean)
		s.oldM, s.oldV = s.Mean, s.Var
		if s.Count > 1 {
			s.StdDev = math.Sqrt(s.Var / (s.Count - 1))
		}
	}
}

func (s *Average) HTML() template.HTML {
	var text string
	if s.Mean > 10 {
		if s.StdDev < 0.1 {
			text = fmt.Sprintf("%.1f", s.Mean)
		} else {
			text = fmt.Sprintf("%.1f&PlusMinus;%.1f", s.Mean, s.StdDev)
		}
	} else {
		if s.StdDev < 0.01 {
			text = fmt.Sprintf("%.2f", s.Mean)
		} else {
			text = fmt.Sprintf("%.2f&PlusMinus;%.2f", s.Mean, s.StdDev)
		}
	}
	return template.HTML(text)
}

// Series holds the per epoch history for one metric. If LowerIsBetter is
// set the best epoch is the minimum, else the maximum.
type Series struct {
	Name          string
	LowerIsBetter bool
	Values        []float64
}

func NewSeries(name string, lowerIsBetter bool) *Series {
	return &Series{Name: name, LowerIsBetter: lowerIsBetter}
}

func (s *Series) Add(val float64) {
	s.Values = append(s.Values, val)
}

func (s *Series) Len() int { return len(s.Values) }

// Last value added, or NaN if the series is empty.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Best returns the 1 based epoch with the best value so far and the value.
func (s *Series) Best() (epoch int, val float64) {
	if len(s.Values) == 0 {
		return 0, math.NaN()
	}
	epoch, val = 1, s.Values[0]
	for i, v := range s.Values[1:] {
		if (s.LowerIsBetter && v < val) || (!s.LowerIsBetter && v > val) {
			epoch, val = i+2, v
		}
	}
	return epoch, val
}

// SinceBest is the number of epochs since the best value was recorded.
func (s *Series) SinceBest() int {
	if len(s.Values) == 0 {
		return 0
	}
	epoch, _ := s.Best()
	return len(s.Values) - epoch
}

func (s *Series) Reset() {
	s.Values = s.Values[:0]
}
