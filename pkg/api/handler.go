package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/leadsheet/pkg/clean"
	"github.com/hazyhaar/leadsheet/pkg/ingest"
	"github.com/hazyhaar/leadsheet/pkg/kit"
	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

// ExportFileName is the download name of a cleaned workbook.
const ExportFileName = "correction_excel_export.xlsx"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config holds the HTTP upload settings and the cleaning defaults applied
// when a request leaves an option unset.
type Config struct {
	Clean          clean.Options
	MaxUploadBytes int64
	CSVEncoding    string
}

// NewRouter returns an http.Handler with all lead pipeline routes. A non-nil
// mcp handler is mounted at /mcp.
func NewRouter(eps *Endpoints, cfg Config, mcp http.Handler) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	mux := http.NewServeMux()
	h := &handler{eps: eps, cfg: cfg}

	mux.HandleFunc("GET /v1/clean", methodNotAllowed) // uploads only
	mux.HandleFunc("POST /v1/clean", h.handleClean)
	mux.HandleFunc("POST /v1/ingest", h.handleIngest)
	mux.HandleFunc("GET /v1/duplicates", h.handleDuplicates)
	mux.HandleFunc("GET /v1/buckets", h.handleBuckets)
	mux.HandleFunc("GET /v1/buckets/{bucket}/files", h.handleListFiles)
	mux.HandleFunc("GET /v1/buckets/{bucket}/files/{file}", h.handleListByFile)
	mux.HandleFunc("DELETE /v1/buckets/{bucket}/files/{file}", h.handleDeleteFile)
	mux.HandleFunc("GET /v1/leads/search", h.handleSearch)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if mcp != nil {
		mux.Handle("/mcp", mcp)
	}

	return cors(requestContext(mux))
}

type handler struct {
	eps *Endpoints
	cfg Config
}

// --- clean ---

func (h *handler) handleClean(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp, err := h.eps.Clean(r.Context(), &CleanRequest{Table: up.table, Options: up.opts})
	if err != nil {
		writeFailure(w, err)
		return
	}
	out := resp.(*CleanResponse)

	if r.URL.Query().Get("format") == "xlsx" {
		var buf bytes.Buffer
		if err := sheet.WriteWorkbook(&buf, out.Table, sheet.ExportSheetName); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		buf.WriteTo(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- ingest ---

// handleIngest loads an upload. The "name" field defaults to the uploaded
// file name without its extension.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	target := lead.Target{
		Bucket:     strings.TrimSpace(r.FormValue("bucket")),
		SourceFile: strings.TrimSpace(r.FormValue("name")),
	}
	if target.Bucket == "" {
		target.Bucket = lead.BucketIntake
	}
	if target.SourceFile == "" {
		target.SourceFile = ingest.SourceName(up.filename)
	}

	resp, err := h.eps.Ingest(r.Context(), &IngestRequest{Table: up.table, Options: up.opts, Target: target})
	if out, ok := resp.(*IngestResponse); ok && out.Outcome != nil && err != nil {
		writeJSON(w, http.StatusBadGateway, out)
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- duplicates, buckets, files ---

func (h *handler) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.Duplicates, nil)
}

func (h *handler) handleBuckets(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.Buckets, nil)
}

func (h *handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.serve(w, r, h.eps.ListFiles, &ListFilesRequest{Bucket: r.PathValue("bucket"), From: from, To: to})
}

func (h *handler) handleListByFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseInt(q.Get("limit"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	offset, err := parseInt(q.Get("offset"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.serve(w, r, h.eps.ListByFile, &FileRequest{
		Bucket: r.PathValue("bucket"),
		File:   r.PathValue("file"),
		Limit:  limit,
		Offset: offset,
	})
}

func (h *handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.DeleteFile, &FileRequest{Bucket: r.PathValue("bucket"), File: r.PathValue("file")})
}

func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, h.eps.Search, &SearchRequest{
		Term:  strings.TrimSpace(q.Get("q")),
		Phone: strings.TrimSpace(q.Get("phone")),
	})
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.eps.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type uploadedTable struct {
	table    *sheet.Table
	opts     clean.Options
	filename string
}

// readUpload parses the multipart "file" field and the cleaning options sent
// alongside it.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request) (*uploadedTable, error) {
	opts := h.cfg.Clean
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, invalid("upload exceeds %d bytes", h.cfg.MaxUploadBytes)
		}
		return nil, invalid("invalid multipart body: %v", err)
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		return nil, invalid("missing file field")
	}
	defer file.Close()

	for key, dst := range map[string]*bool{
		"remove_empty":             &opts.RemoveEmpty,
		"remove_duplicate_headers": &opts.RemoveDuplicateHeaders,
		"remove_dashes":            &opts.RemoveDashes,
		"remove_apercu":            &opts.RemoveApercu,
	} {
		v := r.FormValue(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, invalid("%s: %q is not a boolean", key, v)
		}
		*dst = b
	}

	ro := sheet.ReadOptions{Encoding: h.cfg.CSVEncoding}
	if v := r.FormValue("encoding"); v != "" {
		ro.Encoding = v
	}
	if v := r.FormValue("delimiter"); v != "" {
		ro.Delimiter = []rune(v)[0]
	}

	table, err := sheet.Read(fh.Filename, file, ro)
	if err != nil {
		return nil, &InputError{Err: err}
	}
	return &uploadedTable{table: table, opts: opts, filename: fh.Filename}, nil
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, invalid("date %q: want YYYY-MM-DD", v)
	}
	return t, nil
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, invalid("%q is not a non-negative integer", v)
	}
	return n, nil
}

func writeFailure(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if isInputError(err) {
		code = http.StatusBadRequest
	}
	writeError(w, code, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestContext tags the request context with the HTTP transport and a
// request ID, honouring an incoming X-Request-ID.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = kit.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), kit.TransportHTTP), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
