package main

import (
	"bytes"
	"embed"
	"html/template"
)

// Names of the rendered pages.
const (
	ViewRequestSuccess = "request_success"
	ViewAllRequests    = "all_requests"
)

//go:embed views/*.html
var viewsFS embed.FS

// Viewer renders named html pages.
type Viewer interface {
	Render(name string, data interface{}) ([]byte, error)
}

// Views holds the parsed html templates of the App.
type Views struct {
	tmpl *template.Template
}

// NewViews parses the embedded page templates.
func NewViews() (*Views, error) {
	tmpl, err := template.New("views").Funcs(template.FuncMap{
		"yesno": func(b bool) string {
			if b {
				return "Yes"
			}
			return "No"
		},
	}).ParseFS(viewsFS, "views/*.html")
	if err != nil {
		return nil, err
	}
	return &Views{tmpl: tmpl}, nil
}

// Render executes the named template into a buffer so that a failure
// never leaves a partially written page on the wire.
func (v *Views) Render(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RequestSuccessPage is the data of the confirmation page.
type RequestSuccessPage struct {
	Title   string
	Request RequestView
}

// AllRequestsPage is the data of the requests listing page.
type AllRequestsPage struct {
	Title    string
	Requests []RequestView
}
