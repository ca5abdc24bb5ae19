// Package web ships the public templates and static assets inside the binary.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed template/*.html static/*
var files embed.FS

// Templates parses every public template with funcs available.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "template/*.html")
}

// Static returns the static asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
