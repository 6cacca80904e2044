package handlers

import "net/http"

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Welcome handles GET /.
func Welcome(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "Welcome to QRCode Generator API")
}

// Info handles GET /api/generate-qrcode.
func Info(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "QRCode Generator")
}

// Health handles GET /health. It never touches the pipeline.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

// NotFound is the fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, "NOT_FOUND")
}
