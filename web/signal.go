package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/marialco/braindecode-1/stats"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

const windowsPerPage = 6

// SignalPage plots the signal windows from one of the data splits
// together with their class and latest prediction.
type SignalPage struct {
	*Templates
	Dset  string
	Page  int
	Pages int
	net   *Network
}

// Base data for handler functions to view the signal windows
func NewSignalPage(t *Templates, net *Network) *SignalPage {
	p := &SignalPage{net: net, Dset: "train", Page: 1}
	p.Templates = t.Select("/signals")
	p.AddOption(Link{Name: "prev", Url: "/signals/prev"})
	p.AddOption(Link{Name: "next", Url: "/signals/next"})
	return p
}

// Handler function for the signals template
func (p *SignalPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		vars := mux.Vars(r)
		if dset := vars["dset"]; dset != "" {
			if _, ok := p.net.Data[dset]; ok {
				p.Dset = dset
			}
		}
		if page, err := strconv.Atoi(vars["page"]); err == nil {
			p.Page = page
		}
		p.clampPage()
		p.saveSession(w, r)
		p.Heading = p.net.heading()
		if err := p.ExecuteTemplate(w, "signals", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for the prev and next options
func (p *SignalPage) Setopt() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		switch mux.Vars(r)["opt"] {
		case "prev":
			p.Page--
		case "next":
			p.Page++
		}
		p.clampPage()
		dset, page := p.Dset, p.Page
		p.net.Unlock()
		http.Redirect(w, r, fmt.Sprintf("/signals/%s/%d", dset, page), http.StatusFound)
	}
}

func (p *SignalPage) clampPage() {
	d := p.net.Data[p.Dset]
	p.Pages = (d.Len() + windowsPerPage - 1) / windowsPerPage
	if p.Page > p.Pages {
		p.Page = p.Pages
	}
	if p.Page < 1 {
		p.Page = 1
	}
}

// the last viewed split and page are kept in a session cookie
func (p *SignalPage) saveSession(w http.ResponseWriter, r *http.Request) {
	session, _ := p.store.Get(r, "signals")
	session.Values["dset"] = p.Dset
	session.Values["page"] = p.Page
	session.Save(r, w)
}

// Plots returns one svg plot per window on the current page
func (p *SignalPage) Plots() []template.HTML {
	d := p.net.Data[p.Dset]
	dims := d.Shape()
	channels, samples := dims[0], dims[1]
	start := (p.Page - 1) * windowsPerPage
	end := start + windowsPerPage
	if end > d.Len() {
		end = d.Len()
	}
	buf := make([]float32, channels*samples)
	label := make([]int32, 1)
	var plots []template.HTML
	for i := start; i < end; i++ {
		d.Input([]int{i}, buf)
		d.Label([]int{i}, label)
		ix := d.Window(i)
		plt := newPlot()
		plt.Title.Text = p.title(i, int(label[0]))
		plt.X.Label.Text = "sample"
		for ch := 0; ch < channels; ch++ {
			pts := make(plotter.XYs, samples)
			for s := 0; s < samples; s++ {
				pts[s].X = float64(ix.Start) + float64(s)
				pts[s].Y = float64(buf[ch*samples+s])
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(ch)
			plt.Add(line)
		}
		plots = append(plots, writePlot(plt, 600, 150))
	}
	return plots
}

// ChannelStats returns the formatted mean and stddev per channel over the
// windows on the current page.
func (p *SignalPage) ChannelStats() []template.HTML {
	d := p.net.Data[p.Dset]
	dims := d.Shape()
	channels, samples := dims[0], dims[1]
	start := (p.Page - 1) * windowsPerPage
	end := start + windowsPerPage
	if end > d.Len() {
		end = d.Len()
	}
	avg := make([]*stats.Average, channels)
	for ch := range avg {
		avg[ch] = new(stats.Average)
	}
	buf := make([]float32, channels*samples)
	for i := start; i < end; i++ {
		d.Input([]int{i}, buf)
		for ch, s := range avg {
			for _, val := range buf[ch*samples : (ch+1)*samples] {
				s.Add(float64(val))
			}
		}
	}
	out := make([]template.HTML, channels)
	for ch, s := range avg {
		out[ch] = s.HTML()
	}
	return out
}

func (p *SignalPage) title(i, label int) string {
	d := p.net.Data[p.Dset]
	ix := d.Window(i)
	s := fmt.Sprintf("trial %d window %d: class %s", ix.Trial, ix.Number, d.Classes()[label])
	if pred, ok := p.net.Pred[p.Dset]; ok && i < len(pred) {
		s += fmt.Sprintf(" pred %s", d.Classes()[pred[i]])
	}
	return s
}
