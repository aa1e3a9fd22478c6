// Package web has a web based interface for estimator training and signal
// visualisation.
package web

import (
	"encoding/gob"
	"fmt"
	"html/template"
	"log"
	"math/rand"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/marialco/braindecode-1/nnet"
	"go.uber.org/atomic"
)

// Network wraps an estimator with its training and test data and the
// state shared between the page handlers and the background training
// goroutine.
type Network struct {
	*NetworkData
	Data    map[string]nnet.Data
	cls     *nnet.Classifier
	reg     *nnet.Regressor
	base    *nnet.TestBase
	conn    *websocket.Conn
	rng     *rand.Rand
	testRng *rand.Rand
	running *atomic.Bool
	stop    *atomic.Bool
	sync.Mutex
}

// Embedded struct used to persist state to file
type NetworkData struct {
	Model   string
	Conf    nnet.Config
	Epoch   int
	History []nnet.Stats
	Pred    map[string][]int32
}

// Create a new network and load config from data given model name
func NewNetwork(model string) (*Network, error) {
	n := &Network{running: atomic.NewBool(false), stop: atomic.NewBool(false)}
	log.Println("load model:", model)
	var err error
	n.NetworkData, err = LoadNetwork(model, false)
	if err != nil {
		return nil, err
	}
	if err := n.Init(n.Conf); err != nil {
		return nil, err
	}
	return n, nil
}

// Initialise the estimator: load the data splits and build a new module
// with freshly initialised weights.
func (n *Network) Init(conf nnet.Config) error {
	log.Printf("init network: dataSet=%s cropped=%v\n", conf.DataSet, conf.Cropped)
	var err error
	if n.Data, err = nnet.LoadData(conf.DataSet); err != nil {
		return err
	}
	n.rng = nnet.SetSeed(conf.RandSeed)
	n.testRng = nnet.SetSeed(conf.RandSeed)
	train := n.Data["train"]
	outputs := len(train.Classes())
	if conf.Regression {
		outputs = 1
	}
	module, err := nnet.NewModule(conf, train.Shape(), outputs, n.rng)
	if err != nil {
		return err
	}
	n.cls, n.reg = nil, nil
	var est *nnet.Estimator
	if conf.Regression {
		if n.reg, err = nnet.NewRegressor(conf, module, nil); err != nil {
			return err
		}
		est = n.reg.Estimator
	} else {
		if n.cls, err = nnet.NewClassifier(conf, module, nil); err != nil {
			return err
		}
		est = n.cls.Estimator
	}
	if valid, ok := n.Data["valid"]; ok {
		est.Valid = valid
	}
	if n.base, err = nnet.NewTestBase().Init(conf, n.Data, n.testRng); err != nil {
		return err
	}
	est.Tester = &webTester{TestBase: n.base, net: n}
	n.Conf = conf
	return nil
}

func (n *Network) estimator() *nnet.Estimator {
	if n.reg != nil {
		return n.reg.Estimator
	}
	return n.cls.Estimator
}

// Running reports whether a training goroutine is active.
func (n *Network) Running() bool { return n.running.Load() }

// Stop requests the training goroutine to exit after the current epoch.
func (n *Network) Stop() { n.stop.Store(true) }

// Perform a training run in the background. If restart is set the module
// weights are reinitialised and the stats history cleared first, else
// training continues from the current weights.
func (n *Network) Train(restart bool) error {
	log.Printf("train %s: restart=%v\n", n.Model, restart)
	if restart {
		if err := n.Init(n.Conf); err != nil {
			return err
		}
		n.base.Reset()
		n.History = n.History[:0]
		n.Epoch = 0
	}
	n.running.Store(true)
	n.stop.Store(false)
	go func() {
		var err error
		if n.reg != nil {
			err = n.reg.Fit(n.Data["train"], nil)
		} else {
			err = n.cls.Fit(n.Data["train"], nil)
		}
		if err != nil {
			log.Println("train error:", err)
		}
		n.running.Store(false)
		n.Lock()
		n.notify()
		n.Unlock()
		log.Println("train: end")
	}()
	return nil
}

// called by the tester at the end of each epoch with the network locked
func (n *Network) nextEpoch(epoch int, done bool) bool {
	n.Epoch = epoch
	n.History = n.base.History
	if n.cls != nil {
		for key, d := range n.Data {
			pred, err := n.cls.Predict(d)
			if err != nil {
				log.Println("nextEpoch: predict error:", err)
				continue
			}
			n.Pred[key] = pred
		}
	}
	if err := SaveNetwork(n.NetworkData); err != nil {
		log.Println("nextEpoch: error saving network:", err)
	}
	n.notify()
	return n.stop.Load()
}

// setConn swaps in a new websocket connection. conn is read by notify
// from the training goroutine so updates take the network lock.
func (n *Network) setConn(conn *websocket.Conn) {
	n.Lock()
	n.conn = conn
	n.Unlock()
}

// notify the browser via websocket that new stats are available, called
// with the network locked
func (n *Network) notify() {
	if n.conn == nil {
		return
	}
	msg := []byte(strconv.Itoa(n.Epoch))
	if err := n.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("notify: error writing to websocket:", err)
	}
}

func (n *Network) heading() template.HTML {
	s := fmt.Sprintf(`%s: epoch <span id="epoch">%d</span> of %d`, n.Model, n.Epoch, n.Conf.MaxEpoch)
	return template.HTML(s)
}

// Tester which records the epoch stats then hands control back to the
// network so it can checkpoint state and push updates to the browser.
type webTester struct {
	*nnet.TestBase
	net *Network
}

func (t *webTester) Test(e *nnet.Estimator, epoch int, loss float64, start time.Time) (bool, error) {
	done, err := t.TestBase.Test(e, epoch, loss, start)
	if err != nil {
		return false, err
	}
	t.net.Lock()
	quit := t.net.nextEpoch(epoch, done)
	t.net.Unlock()
	return done || quit, nil
}

// Encode data in gob format and save to file under nnet.DataDir
func SaveNetwork(data *NetworkData) error {
	filePath := path.Join(nnet.DataDir, data.Model+".net")
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(*data)
}

// Read back gob encoded data file, if not found or reset is set then load
// the json config for the model instead.
func LoadNetwork(model string, reset bool) (data *NetworkData, err error) {
	data = &NetworkData{
		Model:   model,
		History: []nnet.Stats{},
		Pred:    map[string][]int32{},
	}
	if !reset {
		if err = loadGob(model+".net", data); err != nil {
			reset = true
		}
	}
	if reset {
		data.Conf, err = nnet.LoadConfig(model + ".conf")
	}
	return data, err
}

func loadGob(name string, data *NetworkData) error {
	filePath := path.Join(nnet.DataDir, name)
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	log.Println("loading network state from", name)
	return gob.NewDecoder(f).Decode(data)
}
