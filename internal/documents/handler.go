// Package documents provides the HTTP endpoints for document analysis:
// synchronous and asynchronous submission, status queries, and
// cancellation. It supports PDF metadata extraction on upload.
package documents

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/construehq/construe/internal/orchestrator"
	"github.com/construehq/construe/internal/routes"
	"github.com/construehq/construe/pkg/handlers"
	"github.com/construehq/construe/pkg/pagination"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Handler provides HTTP endpoints for document analysis operations.
type Handler struct {
	sys           orchestrator.System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// NewHandler creates a document handler with the specified configuration.
func NewHandler(sys orchestrator.System, logger *slog.Logger, pagination pagination.Config, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the document analysis endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/api/v1",
		Tags:        []string{"Documents"},
		Description: "Document analysis submission and status",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/analyze", Handler: h.Analyze},
			{Method: "POST", Pattern: "/analyze/async", Handler: h.AnalyzeAsync},
			{Method: "GET", Pattern: "/documents", Handler: h.List},
			{Method: "GET", Pattern: "/documents/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/documents/{id}/cancel", Handler: h.Cancel},
		},
	}
}

// SubmitResponse acknowledges an asynchronous submission.
type SubmitResponse struct {
	ID        uuid.UUID `json:"id"`
	State     string    `json:"state"`
	StatusURL string    `json:"status_url"`
}

// Analyze accepts a multipart upload and blocks until the analysis
// reaches a terminal state, responding with the final task snapshot.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	task, err := h.sys.SubmitBlocking(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, task)
}

// AnalyzeAsync accepts a multipart upload and responds immediately with
// the task id; progress is observed through Find.
func (h *Handler) AnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	id, err := h.sys.SubmitDetached(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, SubmitResponse{
		ID:        id,
		State:     "queued",
		StatusURL: "/api/v1/documents/" + id.String(),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	matched := filters.Apply(h.sys.List(), page.Search)
	data, total := pagination.Slice(matched, page)

	handlers.RespondJSON(w, http.StatusOK, pagination.NewPageResult(data, total, page.Page, page.PageSize))
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	task, err := h.sys.Status(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, task)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.sys.Cancel(id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// readUpload parses the multipart form and builds the submission
// command. On failure it writes the error response and returns false.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (orchestrator.SubmitCommand, bool) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return orchestrator.SubmitCommand{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return orchestrator.SubmitCommand{}, false
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return orchestrator.SubmitCommand{}, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return orchestrator.SubmitCommand{}, false
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)

	var pageCount *int
	if contentType == "application/pdf" {
		pc, err := extractPDFPageCount(data)
		if err != nil {
			h.logger.Warn("failed to extract pdf page count", "error", err)
		} else {
			pageCount = pc
		}
	}

	return orchestrator.SubmitCommand{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
		PageCount:   pageCount,
	}, true
}

func detectContentType(header string, data []byte) string {
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

func extractPDFPageCount(data []byte) (*int, error) {
	count, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, err
	}
	return &count, nil
}
