package nnet

import (
	"fmt"
	"math/rand"
	"os"
	"path"
	"sync"

	"github.com/marialco/braindecode-1/eeg"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DataTypes are the data set splits which may be on disk for a model.
var DataTypes = []string{"train", "valid", "test"}

// Data interface type represents the raw windowed data for one split.
// eeg.Data is the canonical implementation.
type Data interface {
	Len() int
	Classes() []string
	Shape() []int
	Label(index []int, label []int32)
	Target(index []int, buf []float32)
	Input(index []int, buf []float32)
	Window(i int) eeg.WindowIndex
}

// Dataset type draws batches from a Data split. The next batch is
// prepared by a background goroutine while the current one is consumed.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	targets   []float32
	targetDim int
	xBuffer   [2][]float32
	yBuffer   [2][]float32
	lBuffer   [2][]int32
	winds     [2][]eeg.WindowIndex
	count     [2]int
	lastWinds []eeg.WindowIndex
	lastLabel []int32
	indexes   []int
	buf       int
	batch     int
	rng       *rand.Rand
	sync.WaitGroup
}

// Create a new Dataset, allocate batch buffers and start loading the
// first batch. rng may be nil when the set is never shuffled.
func NewDataset(data Data, batchSize, maxSamples int, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), rng: rng, targetDim: 1}
	if maxSamples > 0 && d.Samples > maxSamples {
		d.Samples = maxSamples
	}
	if batchSize == 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	nfeat := prod(data.Shape())
	for i := range d.xBuffer {
		d.xBuffer[i] = make([]float32, nfeat*d.BatchSize)
		d.yBuffer[i] = make([]float32, d.BatchSize)
		d.lBuffer[i] = make([]int32, d.BatchSize)
		d.winds[i] = make([]eeg.WindowIndex, 0, d.BatchSize)
	}
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	d.loadBatch()
	return d
}

// SetTargets overrides the targets read from the Data split, e.g. with
// the y argument passed to Fit. A 1d tensor is treated as a column.
func (d *Dataset) SetTargets(y *tensor.Dense) error {
	shp := y.Shape()
	n := shp[0]
	if n != d.Data.Len() {
		return errors.Errorf("nnet: have %d targets for %d windows", n, d.Data.Len())
	}
	dim := 1
	if len(shp) == 2 {
		dim = shp[1]
	} else if len(shp) != 1 {
		return errors.Errorf("nnet: invalid target shape %v", shp)
	}
	d.Wait()
	d.targets = y.Data().([]float32)
	d.targetDim = dim
	for i := range d.yBuffer {
		d.yBuffer[i] = make([]float32, d.BatchSize*dim)
	}
	d.Rewind()
	return nil
}

// Batches in one pass over the data
func (d *Dataset) Batches() int {
	n := d.Samples / d.BatchSize
	if d.Samples%d.BatchSize != 0 {
		n++
	}
	return n
}

// kick off load of next batch of data in background
func (d *Dataset) loadBatch() {
	d.Add(1)
	go func() {
		start := d.batch * d.BatchSize
		end := start + d.BatchSize
		if end > d.Samples {
			end = d.Samples
		}
		index := d.indexes[start:end]
		n := len(index)
		d.Input(index, d.xBuffer[d.buf])
		d.Label(index, d.lBuffer[d.buf])
		if d.targets != nil {
			for i, ix := range index {
				copy(d.yBuffer[d.buf][i*d.targetDim:(i+1)*d.targetDim], d.targets[ix*d.targetDim:(ix+1)*d.targetDim])
			}
		} else {
			d.Target(index, d.yBuffer[d.buf])
		}
		winds := d.winds[d.buf][:0]
		for _, ix := range index {
			winds = append(winds, d.Window(ix))
		}
		d.winds[d.buf] = winds
		d.count[d.buf] = n
		d.Done()
	}()
}

// Get next batch of data: x is [batch, channels, time], y is
// [batch, targetDim]. The returned tensors are only valid until the batch
// after next is requested.
func (d *Dataset) NextBatch() (x, y *tensor.Dense, err error) {
	d.Wait()
	n := d.count[d.buf]
	dims := d.Shape()
	nfeat := prod(dims)
	x = tensor.New(tensor.WithShape(append([]int{n}, dims...)...), tensor.WithBacking(d.xBuffer[d.buf][:n*nfeat]))
	y = tensor.New(tensor.WithShape(n, d.targetDim), tensor.WithBacking(d.yBuffer[d.buf][:n*d.targetDim]))
	d.lastWinds = d.winds[d.buf]
	d.lastLabel = d.lBuffer[d.buf][:n]
	d.batch = (d.batch + 1) % d.Batches()
	d.buf = (d.buf + 1) % 2
	d.loadBatch()
	return x, y, nil
}

// LastWindows returns the window bookkeeping for the batch most recently
// returned by NextBatch.
func (d *Dataset) LastWindows() []eeg.WindowIndex { return d.lastWinds }

// LastLabels returns the class labels for the batch most recently
// returned by NextBatch.
func (d *Dataset) LastLabels() []int32 { return d.lastLabel }

// Rewind to start of data
func (d *Dataset) Rewind() {
	d.Wait()
	d.batch = 0
	d.loadBatch()
}

// Shuffle the data set
func (d *Dataset) Shuffle() {
	d.Wait()
	d.indexes = d.rng.Perm(d.Samples)
	d.batch = 0
	d.loadBatch()
}

// Load data sets from disk given the model name.
func LoadData(model string) (d map[string]Data, err error) {
	d = make(map[string]Data)
	for _, key := range DataTypes {
		name := model + "_" + key
		if FileExists(name + ".dat") {
			var set *eeg.Data
			if set, err = LoadDataFile(name); err != nil {
				return
			}
			// standardize with the per channel stats from the header,
			// which the generator copies from the train split
			set.Normalize()
			d[key] = set
		}
	}
	if _, ok := d["train"]; !ok {
		return nil, errors.Errorf("nnet: no %s_train.dat file under %s", model, DataDir)
	}
	return d, nil
}

// Decode data from gob format file under DataDir
func LoadDataFile(name string) (*eeg.Data, error) {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fmt.Printf("loading data from %s.dat:\t", name)
	d := new(eeg.Data)
	if err = d.Decode(f); err != nil {
		return nil, err
	}
	fmt.Println(append(d.Shape(), d.Len()))
	return d, nil
}

// Encode in gob format and save to file under DataDir
func SaveDataFile(d *eeg.Data, name string) error {
	filePath := path.Join(DataDir, name+".dat")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Println("saving data to", name+".dat")
	return d.Encode(f)
}

// Check if file exists under DataDir
func FileExists(name string) bool {
	_, err := os.Stat(path.Join(DataDir, name))
	return err == nil
}

func prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
