// Package assets embeds the console's static files.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed static
var embedded embed.FS

// Static returns the static tree rooted at static/, so app.css is "app.css".
func Static() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic("assets: " + err.Error())
	}
	return sub
}
