package api

import "net/http"

// NewRouter builds the service's HTTP mux using Go 1.22's method- and
// wildcard-aware http.ServeMux patterns.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)

	mux.HandleFunc("POST /upload/multipart", h.UploadMultipart)
	mux.HandleFunc("POST /upload/remote", h.UploadRemote)
	mux.HandleFunc("POST /download/yt-dlp", h.DownloadYtDlp)

	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /jobs/{id}/events", h.GetJobEvents)

	mux.HandleFunc("GET /videos/{id}/download", h.DownloadVideo)
	mux.HandleFunc("GET /videos/{id}", h.DownloadVideo)

	mux.HandleFunc("GET /videos/{id}/hls/{asset...}", h.ServeHLS)
	mux.HandleFunc("GET /videos/{id}/dash/{asset...}", h.ServeDASH)

	return mux
}
