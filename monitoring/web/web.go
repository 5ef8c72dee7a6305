// Package web holds the dashboard page served by the monitor.
package web

import (
	"embed"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
)

// DirEnv names the environment variable that points the monitor to a
// directory of dashboard files. It lets the page be edited without
// rebuilding.
const DirEnv = "DISIM_MONITOR_DIR"

//go:embed dist/*
var dist embed.FS

// Assets returns the dashboard files, read from the DirEnv directory when it
// is set and from the embedded copy otherwise.
func Assets() http.FileSystem {
	if dir := os.Getenv(DirEnv); dir != "" {
		slog.Info("serving the dashboard from a directory", "dir", dir)

		return http.Dir(dir)
	}

	embedded, err := fs.Sub(dist, "dist")
	if err != nil {
		log.Panic(err)
	}

	return http.FS(embedded)
}
