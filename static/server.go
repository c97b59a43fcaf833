package static

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

// The frontend build is copied into dist/ before compiling; a placeholder
// index.html is checked in so the server runs without one.
//
//go:embed dist
var dist embed.FS

func Handler() http.Handler {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/assets/") || strings.ContainsRune(r.URL.Path, '.') && !strings.HasSuffix(r.URL.Path, "/") {
			fileServer.ServeHTTP(w, r)
			return
		}
		// app routes always get index.html; the SPA router takes over
		b, err := fs.ReadFile(sub, "index.html")
		if err != nil {
			http.Error(w, "index not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}
