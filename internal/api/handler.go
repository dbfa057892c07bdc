package api

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gwlsn/vrsd/internal/apierr"
	"github.com/gwlsn/vrsd/internal/config"
	"github.com/gwlsn/vrsd/internal/eventlog"
	"github.com/gwlsn/vrsd/internal/ffmpeg"
	"github.com/gwlsn/vrsd/internal/ingest"
	"github.com/gwlsn/vrsd/internal/ingest/extractor"
	"github.com/gwlsn/vrsd/internal/ingest/remote"
	"github.com/gwlsn/vrsd/internal/ingest/torrent"
	"github.com/gwlsn/vrsd/internal/ingest/upload"
	"github.com/gwlsn/vrsd/internal/jobs"
	"github.com/gwlsn/vrsd/internal/logger"
	"github.com/gwlsn/vrsd/internal/proc/progress"
	"github.com/gwlsn/vrsd/internal/rendition"
)

// Handler serves the ingest/status/playback HTTP surface; one method
// per route.
type Handler struct {
	cfg      *config.Config
	registry *jobs.Registry
	planner  *ffmpeg.Planner

	uploadDriver    *upload.Driver
	remoteDriver    *remote.Driver
	torrentDriver   *torrent.Driver
	extractorDriver *extractor.Driver

	rendition *rendition.Generator

	eventLog *eventlog.Log
}

// NewHandler wires a Handler from its already-constructed collaborators.
// renditionGen serves both HLS and DASH: Generator.Dir/Ensure take the
// format as a parameter rather than needing one instance per format.
func NewHandler(
	cfg *config.Config,
	registry *jobs.Registry,
	planner *ffmpeg.Planner,
	uploadDriver *upload.Driver,
	remoteDriver *remote.Driver,
	torrentDriver *torrent.Driver,
	extractorDriver *extractor.Driver,
	renditionGen *rendition.Generator,
	eventLog *eventlog.Log,
) *Handler {
	return &Handler{
		cfg:             cfg,
		registry:        registry,
		planner:         planner,
		uploadDriver:    uploadDriver,
		remoteDriver:    remoteDriver,
		torrentDriver:   torrentDriver,
		extractorDriver: extractorDriver,
		rendition:       renditionGen,
		eventLog:        eventLog,
	}
}

func (h *Handler) pipeline() *pipeline {
	return &pipeline{
		registry: h.registry,
		planner:  h.planner,
		eventLog: h.eventLog,
		cfg: pipelineConfig{
			IncomingDir: h.cfg.IncomingDir(),
			StorageRoot: h.cfg.StorageRoot,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeAPIError(w http.ResponseWriter, err error) {
	writeError(w, apierr.Status(err), apierr.Message(err))
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// parseTranscodeOverrides validates an optional transcode object against
// internal/jobs' crf/cpu_used ranges, returning a BadRequest apierr on
// violation so the caller can respond synchronously without ever
// creating a job.
func parseTranscodeOverrides(o *transcodeOverrides) (ffmpeg.TranscodeRequest, error) {
	var req ffmpeg.TranscodeRequest
	if o == nil {
		return req, nil
	}
	if o.CRF != nil {
		if !jobs.ValidCRF(*o.CRF) {
			return req, apierr.New(apierr.KindBadRequest, "crf out of range")
		}
		req.CRF = o.CRF
	}
	if o.CPUUsed != nil {
		if !jobs.ValidCPUUsed(*o.CPUUsed) {
			return req, apierr.New(apierr.KindBadRequest, "cpu_used out of range")
		}
		req.CPUUsed = o.CPUUsed
	}
	return req, nil
}

// UploadMultipart handles POST /upload/multipart. The first file part is
// stream-copied into the staging area while the request body is still
// open — the copy runs synchronously inside this handler, and the
// response is written once it finishes, while the job is still in
// fetching; the later stages run in the background. A client disconnect
// mid-upload cancels staging through the request context.
func (h *Handler) UploadMultipart(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart request body")
		return
	}

	var part *multipart.Part
	for {
		p, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file part")
			return
		}
		if p.FileName() != "" {
			part = p
			break
		}
		p.Close()
	}

	job := h.registry.Create("upload", totalStages)
	pipe := h.pipeline()

	if err := h.registry.Transition(job.ID, jobs.StageFetching, nil); err != nil {
		logger.Error("upload: enter fetching", "job_id", job.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	pipe.record(job.ID, "upload")

	stagedDir := filepath.Join(h.cfg.IncomingDir(), job.ID)
	req := ingest.Request{UploadReader: part, ContentLength: r.ContentLength}
	stagedPath, err := h.uploadDriver.Stage(r.Context(), stagedDir, req, func(u progress.Update) {
		h.registry.UpdateStageProgress(job.ID, u.Fraction, u.Speed)
	})
	if err != nil {
		pipe.fail(job.ID, "upload", apierr.KindFetchFailed, err)
		os.RemoveAll(stagedDir)
		writeAPIError(w, apierr.Wrap(apierr.KindFetchFailed, err))
		return
	}

	writeJSON(w, http.StatusAccepted, newUploadResponse(job.ID))

	ctx, cancel := backgroundContext()
	go func() {
		defer cancel()
		pipe.runStaged(ctx, job, "upload", stagedPath, ffmpeg.TranscodeRequest{})
	}()
}

type remoteRequestBody struct {
	URL       string              `json:"url"`
	Transcode *transcodeOverrides `json:"transcode,omitempty"`
}

// UploadRemote handles POST /upload/remote. A magnet link or .torrent
// URL is routed to the torrent driver instead of the remote driver;
// there is no separate torrent route.
func (h *Handler) UploadRemote(w http.ResponseWriter, r *http.Request) {
	var body remoteRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validFetchURL(body.URL) {
		writeError(w, http.StatusBadRequest, "invalid or missing url")
		return
	}

	transReq, err := parseTranscodeOverrides(body.Transcode)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	var driver ingest.Driver
	sourceKind := "remote"
	if isTorrentURL(body.URL) {
		driver = h.torrentDriver
		sourceKind = "torrent"
	} else {
		driver = h.remoteDriver
	}

	job := h.registry.Create(sourceKind, totalStages)
	writeJSON(w, http.StatusAccepted, newUploadResponse(job.ID))

	req := ingest.Request{URL: body.URL}
	ctx, cancel := backgroundContext()
	go func() {
		defer cancel()
		h.pipeline().run(ctx, job, sourceKind, driver, req, transReq)
	}()
}

// DownloadYtDlp handles POST /download/yt-dlp.
func (h *Handler) DownloadYtDlp(w http.ResponseWriter, r *http.Request) {
	var body remoteRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validFetchURL(body.URL) {
		writeError(w, http.StatusBadRequest, "invalid or missing url")
		return
	}

	transReq, err := parseTranscodeOverrides(body.Transcode)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	job := h.registry.Create("extractor", totalStages)
	writeJSON(w, http.StatusAccepted, newUploadResponse(job.ID))

	req := ingest.Request{URL: body.URL}
	ctx, cancel := backgroundContext()
	go func() {
		defer cancel()
		h.pipeline().run(ctx, job, "extractor", h.extractorDriver, req, transReq)
	}()
}

func validFetchURL(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "magnet:") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp", "ftps":
		return true
	default:
		return false
	}
}

func isTorrentURL(raw string) bool {
	return strings.HasPrefix(raw, "magnet:") || strings.HasSuffix(strings.ToLower(raw), ".torrent")
}

// ListJobs handles GET /jobs, returning every job snapshot oldest first.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.All())
}

// GetJobEvents handles GET /jobs/{id}/events, returning the durable
// stage-transition history from the event log. Responds with an empty
// list when the event log is not configured.
func (h *Handler) GetJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	events, err := h.eventLog.History(id)
	if err != nil {
		logger.Error("event history query failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "event history unavailable")
		return
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetJob handles GET /jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DownloadVideo handles GET /videos/{id}/download and GET /videos/{id}.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if snap.Stage != jobs.StageComplete {
		writeError(w, http.StatusNotFound, "video not ready")
		return
	}

	path := h.registry.MezzaninePath(id)
	if path == "" {
		writeError(w, http.StatusNotFound, "video not ready")
		return
	}

	w.Header().Set("Content-Type", "video/x-matroska")
	http.ServeFile(w, r, path)
}

// ServeHLS handles GET /videos/{id}/hls/{asset...}.
func (h *Handler) ServeHLS(w http.ResponseWriter, r *http.Request) {
	h.serveRendition(w, r, rendition.FormatHLS)
}

// ServeDASH handles GET /videos/{id}/dash/{asset...}.
func (h *Handler) ServeDASH(w http.ResponseWriter, r *http.Request) {
	h.serveRendition(w, r, rendition.FormatDASH)
}

func (h *Handler) serveRendition(w http.ResponseWriter, r *http.Request, format rendition.Format) {
	gen := h.rendition
	id := r.PathValue("id")
	asset := r.PathValue("asset")
	if asset == "" {
		asset = rendition.MasterAsset[format]
	}

	snap, ok := h.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if snap.Stage != jobs.StageComplete {
		writeError(w, http.StatusNotFound, "video not ready")
		return
	}

	mezzaninePath := h.registry.MezzaninePath(id)
	if mezzaninePath == "" {
		writeError(w, http.StatusNotFound, "video not ready")
		return
	}

	if err := gen.Ensure(r.Context(), id, format, mezzaninePath); err != nil {
		logger.Error("rendition generation failed", "job_id", id, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "rendition generation failed")
		return
	}

	rendition.ServeAsset(w, r, gen.Dir(id, format), asset)
}
