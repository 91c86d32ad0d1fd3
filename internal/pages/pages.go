// Package pages holds the server-rendered admin login and dashboard.
package pages

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

const (
	LoginTemplate     = "login.html"
	DashboardTemplate = "dashboard.html"
)

// Templates parses the embedded pages for gin's SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("pages").ParseFS(files, "templates/*.html"))
}

type PageData struct {
	Title   string
	Version string
}
