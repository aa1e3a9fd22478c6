package main

import (
	"flag"
	"fmt"

	"github.com/marialco/braindecode-1/eeg"
	"github.com/marialco/braindecode-1/nnet"
)

const model = "bci"

func main() {
	trials := flag.Int("trials", 200, "number of trials to generate")
	channels := flag.Int("channels", 4, "signal channels per trial")
	samples := flag.Int("samples", 512, "samples per trial")
	classes := flag.Int("classes", 2, "number of classes")
	winSize := flag.Int("winsize", 128, "window size in samples")
	stride := flag.Int("stride", 64, "stride between window starts")
	seed := flag.Int64("seed", 1, "random number seed")
	flag.Parse()

	rng := nnet.SetSeed(*seed)
	all := eeg.Synthetic(rng, *trials, *channels, *samples, *classes)
	names := eeg.ClassNames(*classes)
	w := eeg.Windower{Size: *winSize, Stride: *stride}

	// trials are split 60/20/20 between train, valid and test
	n1, n2 := (*trials*6)/10, (*trials*8)/10
	splits := map[string][]eeg.Trial{
		"train": all[:n1],
		"valid": all[n1:n2],
		"test":  all[n2:],
	}
	var train *eeg.Data
	for _, key := range nnet.DataTypes {
		d, err := w.Split(splits[key], names)
		nnet.CheckErr(err)
		if key == "train" {
			train = d
			d.Mean, d.StdDev = eeg.GetStats(d)
		} else {
			d.Mean, d.StdDev = train.Mean, train.StdDev
		}
		fmt.Printf("%s: %d trials %d windows\n", key, len(splits[key]), d.Len())
		nnet.CheckErr(nnet.SaveDataFile(d, model+"_"+key))
	}

	conf := nnet.DefaultConfig()
	conf.DataSet = model
	conf.Scoring = []string{"accuracy"}
	conf.CropLen = *winSize / 2
	conf.CropStride = *winSize / 8
	nnet.CheckErr(conf.Save(model + ".conf"))
	nnet.CheckErr(conf.Save(model + ".default"))
}
