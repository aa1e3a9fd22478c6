package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/marialco/braindecode-1/nnet"
	"github.com/marialco/braindecode-1/web"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Println("usage: web [opts] <model>")
		os.Exit(1)
	}
	model := os.Args[len(os.Args)-1]
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	net, err := web.NewNetwork(model)
	nnet.CheckErr(err)

	t, err := web.NewTemplates()
	nnet.CheckErr(err)
	t.AddMenuItem(web.Link{Name: "train", Url: "/train"})
	t.AddMenuItem(web.Link{Name: "signals", Url: "/signals"})
	t.AddMenuItem(web.Link{Name: "config", Url: "/config"})

	trainPage := web.NewTrainPage(t.Clone(), net)
	signalPage := web.NewSignalPage(t.Clone(), net)
	configPage := web.NewConfigPage(t.Clone(), net)

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/train", http.StatusFound))

	r.HandleFunc("/train", trainPage.Base())
	r.HandleFunc("/train/{cmd:(?:start|stop|continue)}", trainPage.Base())
	r.HandleFunc("/stats", trainPage.Stats())
	r.HandleFunc("/ws", trainPage.Websocket())

	r.Handle("/signals", http.RedirectHandler("/signals/train/1", http.StatusFound))
	r.HandleFunc("/signals/{opt:(?:prev|next)}", signalPage.Setopt())
	r.HandleFunc("/signals/{dset}/{page:[0-9]+}", signalPage.Base())

	r.HandleFunc("/config", configPage.Base())
	r.HandleFunc("/config/save", configPage.Save()).Methods("POST")
	r.HandleFunc("/config/reset", configPage.Reset())

	var handler http.Handler = r
	if mw := web.NewAuthMiddleware(); mw.Enabled() {
		handler = mw.Middleware(r)
	}
	fmt.Printf("serving web page at http://localhost:%d\n", *port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *port), handler))
}
