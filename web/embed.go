// Package web carries the embedded map UI served by the local server.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// Handler serves the embedded UI with index.html at the root.
func Handler() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// The subtree is embedded at build time; a failure here means a
		// broken binary, not a runtime condition.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
