package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/marialco/braindecode-1/nnet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: train [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	conf, err := nnet.LoadConfig(model + ".conf")
	nnet.CheckErr(err)

	// override config settings from command line
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.IntVar(&conf.MaxEpoch, "epochs", conf.MaxEpoch, "max epochs")
	flag.IntVar(&conf.MaxSamples, "samples", conf.MaxSamples, "max samples")
	flag.IntVar(&conf.TrainBatch, "batch", conf.TrainBatch, "train batch size")
	flag.IntVar(&conf.TestBatch, "testbatch", conf.TestBatch, "test batch size")
	flag.IntVar(&conf.DebugLevel, "debug", conf.DebugLevel, "debug logging level")
	flag.BoolVar(&conf.Cropped, "cropped", conf.Cropped, "cropped decoding mode")
	flag.Parse()
	if conf.DebugLevel >= 1 {
		fmt.Println(conf)
	}

	// load training and test data
	data, err := nnet.LoadData(conf.DataSet)
	nnet.CheckErr(err)
	train := data["train"]

	rng := nnet.SetSeed(conf.RandSeed)
	outputs := len(train.Classes())
	if conf.Regression {
		outputs = 1
	}
	module, err := nnet.NewModule(conf, train.Shape(), outputs, rng)
	nnet.CheckErr(err)

	if conf.Regression {
		reg, err := nnet.NewRegressor(conf, module, nil)
		nnet.CheckErr(err)
		if valid, ok := data["valid"]; ok {
			reg.Valid = valid
		}
		nnet.CheckErr(reg.Fit(train, nil))
		return
	}
	cls, err := nnet.NewClassifier(conf, module, nil)
	nnet.CheckErr(err)
	if valid, ok := data["valid"]; ok {
		cls.Valid = valid
	}
	nnet.CheckErr(cls.Fit(train, nil))

	if test, ok := data["test"]; ok {
		pred, err := cls.Predict(test)
		nnet.CheckErr(err)
		labels := make([]int32, test.Len())
		index := make([]int, test.Len())
		for i := range index {
			index[i] = i
		}
		test.Label(index, labels)
		correct := 0
		for i, p := range pred {
			if p == labels[i] {
				correct++
			}
		}
		fmt.Printf("test accuracy: %.4f\n", float64(correct)/float64(len(pred)))
		if conf.Cropped {
			trials, targets, err := cls.PredictTrials(test, true)
			nnet.CheckErr(err)
			fmt.Printf("predicted %d trials", len(trials))
			if len(trials) > 0 {
				shp := trials[0].Shape()
				fmt.Printf(" of shape %v, first target %v", shp, targets[0])
			}
			fmt.Println()
		}
	}
}
