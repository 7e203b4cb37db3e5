package web

import (
	"net/http"

	webembed "github.com/ateliergpr/gpr/web"
)

// NewRouter serves the embedded frontend, the piece lookup page that QR
// codes point at, and the QR label directory.
func NewRouter(qrDir string) http.Handler {
	staticFS := webembed.StaticFS()
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()

	mux.Handle("GET /css/", fileServer)
	mux.Handle("GET /js/", fileServer)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, staticFS, "index.html")
	})

	// Scan target: always serves the detail page, the page itself asks
	// the API whether the piece exists.
	mux.HandleFunc("GET /piece/{identifiant}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, staticFS, "piece.html")
	})

	mux.Handle("GET /qr/", http.StripPrefix("/qr/", http.FileServer(http.Dir(qrDir))))

	return mux
}
