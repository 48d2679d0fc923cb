// Package web embeds the browser front end: a form for Spotify credentials and a playlist URL,
// a checklist of the fetched tracks and a transfer form that shows the server's JSON result.
//
// # Flow
//
//  1. POST /api/spotify/playlist with {playlistUrl, clientId, clientSecret}
//  2. Render every returned track checked, with a live "N / M selected" counter
//  3. POST /api/spotify/transfer with {playlistName, selectedTrackIds}
//  4. Show the response pretty-printed
//
// The page only checks that fields are present; all other validation happens on the server.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Assets serves the embedded page. It satisfies server.Handler.
type Assets struct {
	index []byte
	files http.Handler
}

// New loads the embedded assets.
func New() (*Assets, error) {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}

	index, err := fs.ReadFile(static, "index.html")
	if err != nil {
		return nil, err
	}

	return &Assets{
		index: index,
		files: http.StripPrefix("/static/", http.FileServerFS(static)),
	}, nil
}

// Routes returns the page and static asset patterns.
func (a *Assets) Routes() []string {
	return []string{"GET /{$}", "GET /static/"}
}

func (a *Assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(a.index)
		return
	}
	a.files.ServeHTTP(w, r)
}
