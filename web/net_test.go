package web

import (
	"bytes"
	"strings"
	"testing"

	"github.com/marialco/braindecode-1/nnet"
	"go.uber.org/atomic"
)

func TestGetFields(t *testing.T) {
	conf := nnet.DefaultConfig()
	flds := getFields(conf)
	byName := map[string]Field{}
	for _, f := range flds {
		byName[f.Name] = f
	}
	if f := byName["Eta"]; f.Value != "0.01" || f.Boolean {
		t.Errorf("Eta field: %+v", f)
	}
	if f := byName["Shuffle"]; !f.Boolean || !f.On {
		t.Errorf("Shuffle field: %+v", f)
	}
	if f := byName["Cropped"]; !f.Boolean || f.On {
		t.Errorf("Cropped field: %+v", f)
	}
	if _, ok := byName["Scoring"]; ok {
		t.Error("Scoring should not be an editable field")
	}
}

// the websocket connection may be replaced by a new client while the
// training goroutine is sending updates
func TestNotifyConnSwap(t *testing.T) {
	n := &Network{
		NetworkData: &NetworkData{},
		running:     atomic.NewBool(false),
		stop:        atomic.NewBool(false),
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			n.Lock()
			n.notify()
			n.Unlock()
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		n.setConn(nil)
	}
	<-done
}

func TestTemplates(t *testing.T) {
	tmpl, err := NewTemplates()
	if err != nil {
		t.Fatal(err)
	}
	tmpl.AddMenuItem(Link{Name: "train", Url: "/train"})
	tmpl.AddMenuItem(Link{Name: "config", Url: "/config"})
	tmpl.Select("/config")
	if tmpl.Menu[0].Selected || !tmpl.Menu[1].Selected {
		t.Errorf("menu selection: %+v", tmpl.Menu)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", tmpl); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `href="/train"`) {
		t.Error("menu link missing from rendered page")
	}
}
