package web

import (
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
)

var authKey = []byte("xahth3Ieyeiqu0ie")

// Template and main menu definition
type Templates struct {
	*template.Template
	Menu    []Link
	Options []Link
	Heading template.HTML
	store   sessions.Store
}

type Link struct {
	Url      string
	Name     string
	Selected bool
}

// Parse the embedded page templates and initialise the main menu
func NewTemplates() (*Templates, error) {
	t := &Templates{Menu: []Link{}, Options: []Link{}}
	var err error
	t.Template, err = template.New("base").Parse(pageHTML)
	if err != nil {
		return nil, err
	}
	t.store = sessions.NewCookieStore(authKey)
	return t, nil
}

func (t *Templates) Clone() *Templates {
	return &Templates{
		Template: t.Template,
		Menu:     append([]Link{}, t.Menu...),
		Options:  append([]Link{}, t.Options...),
		store:    t.store,
	}
}

func (t *Templates) Select(url string) *Templates {
	for i, key := range t.Menu {
		t.Menu[i].Selected = strings.HasPrefix(key.Url, url)
	}
	return t
}

func (t *Templates) AddMenuItem(l Link) *Templates {
	t.Menu = append(t.Menu, l)
	return t
}

func (t *Templates) AddOption(l Link) *Templates {
	t.Options = append(t.Options, l)
	return t
}

func logError(w http.ResponseWriter, err error) {
	log.Println("ERROR:", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

const pageHTML = `
{{define "base"}}<!doctype html>
<html><head><title>eeg decoding</title>
<style>
body { font-family: sans-serif; margin: 1em; }
nav a { margin-right: 1em; }
nav a.selected { font-weight: bold; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 2px 8px; text-align: right; }
</style>
</head><body>
<nav>{{range .Menu}}<a href="{{.Url}}" {{if .Selected}}class="selected"{{end}}>{{.Name}}</a>{{end}}
{{range .Options}}<a href="{{.Url}}">{{.Name}}</a>{{end}}</nav>
<h3>{{.Heading}}</h3>
{{end}}

{{define "train"}}{{template "base" .}}
<div id="stats">{{template "stats" .}}</div>
<script>
var ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function(ev) {
  fetch("/stats").then(function(r) { return r.text(); }).then(function(html) {
    document.getElementById("stats").innerHTML = html;
  });
};
</script>
</body></html>{{end}}

{{define "stats"}}
{{.LossPlot 480 260}}
{{.ScorePlot 480 260}}
<table><tr><th>epoch</th>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .StatsRows}}<tr><td>{{.Epoch}}</td>{{range .Values}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
<p>{{.RunTime}}</p>
{{end}}

{{define "signals"}}{{template "base" .}}
<p>page {{.Page}} of {{.Pages}} in {{.Dset}}</p>
<p>channel mean: {{range .ChannelStats}}<span class="chstat">{{.}}</span> {{end}}</p>
{{range .Plots}}<div>{{.}}</div>{{end}}
</body></html>{{end}}

{{define "config"}}{{template "base" .}}
<form method="POST" action="/config/save"><table>
{{range .Fields}}<tr><td>{{.Name}}</td><td>
{{if .Boolean}}<input type="checkbox" name="{{.Name}}" value="true" {{if .On}}checked{{end}}>
{{else}}<input name="{{.Name}}" value="{{.Value}}">{{end}}
</td><td>{{.Error}}</td></tr>{{end}}
</table><input type="submit" value="save"></form>
</body></html>{{end}}
`
