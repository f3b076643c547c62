package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves files from dir. Paths that match no file and have
// no extension get the index page so client-side routes survive a reload.
func staticHandler(dir, index string) http.HandlerFunc {
	if index == "" {
		index = "index.html"
	}
	root := http.Dir(dir)
	files := http.FileServer(root)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		upath := path.Clean("/" + r.URL.Path)
		if strings.HasPrefix(upath, "/api/") || strings.HasPrefix(upath, "/s/") {
			http.NotFound(w, r)
			return
		}

		if f, err := root.Open(upath); err == nil {
			st, statErr := f.Stat()
			f.Close()
			if statErr == nil && !st.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		if upath != "/" && path.Ext(upath) != "" {
			http.NotFound(w, r)
			return
		}
		serveIndex(w, r, filepath.Join(dir, index))
	}
}

func serveIndex(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(name), st.ModTime(), f)
}
