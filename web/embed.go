// Package web embeds the compiled single-page frontend into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS exposes the built frontend rooted at dist/. The directory only
// exists after a frontend build, so callers must tolerate an error here.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
