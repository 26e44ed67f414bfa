package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/construehq/construe/internal/documents"
	"github.com/construehq/construe/internal/lifecycle"
	"github.com/construehq/construe/internal/orchestrator"
	"github.com/construehq/construe/internal/routes"
	"github.com/construehq/construe/internal/tasks"
	"github.com/construehq/construe/pkg/pagination"
	"github.com/google/uuid"
)

type stubSystem struct {
	blocking  func(cmd orchestrator.SubmitCommand) (*tasks.Task, error)
	detached  func(cmd orchestrator.SubmitCommand) (uuid.UUID, error)
	status    func(id uuid.UUID) (*tasks.Task, error)
	list      []tasks.Task
	cancelErr error
}

func (s *stubSystem) SubmitBlocking(_ context.Context, cmd orchestrator.SubmitCommand) (*tasks.Task, error) {
	return s.blocking(cmd)
}

func (s *stubSystem) SubmitDetached(_ context.Context, cmd orchestrator.SubmitCommand) (uuid.UUID, error) {
	return s.detached(cmd)
}

func (s *stubSystem) Status(id uuid.UUID) (*tasks.Task, error) {
	return s.status(id)
}

func (s *stubSystem) List() []tasks.Task { return s.list }

func (s *stubSystem) Cancel(uuid.UUID) error { return s.cancelErr }

func (s *stubSystem) Start(*lifecycle.Coordinator) error { return nil }

func newServer(t *testing.T, sys orchestrator.System, maxUpload int64) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := documents.NewHandler(sys, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}, maxUpload)

	routeSys := routes.New(logger)
	routeSys.RegisterGroup(handler.Routes())

	srv := httptest.NewServer(routeSys.Build())
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() failed: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("part write failed: %v", err)
	}
	writer.Close()

	return &buf, writer.FormDataContentType()
}

func TestAnalyzeBlocking(t *testing.T) {
	sys := &stubSystem{
		blocking: func(cmd orchestrator.SubmitCommand) (*tasks.Task, error) {
			if cmd.Filename != "invoice.txt" {
				t.Errorf("unexpected filename: %s", cmd.Filename)
			}
			if cmd.ContentType == "" {
				t.Error("expected detected content type")
			}
			task := tasks.New(cmd.Filename, cmd.ContentType, int64(len(cmd.Data)), nil)
			task.State = tasks.StateCompleted
			task.Result = &tasks.Result{
				Fields: []tasks.Field{{Name: "total", Value: "42.00"}},
			}
			return &task, nil
		},
	}
	srv := newServer(t, sys, 1<<20)

	body, contentType := multipartBody(t, "invoice.txt", []byte("invoice total 42.00"))
	resp, err := http.Post(srv.URL+"/api/v1/analyze", contentType, body)
	if err != nil {
		t.Fatalf("POST /analyze failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var task tasks.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if task.State != tasks.StateCompleted {
		t.Errorf("expected completed task, got %s", task.State)
	}
	if len(task.Result.Fields) != 1 || task.Result.Fields[0].Name != "total" {
		t.Errorf("unexpected result fields: %+v", task.Result)
	}
}

func TestAnalyzeAsync(t *testing.T) {
	id := uuid.New()
	sys := &stubSystem{
		detached: func(orchestrator.SubmitCommand) (uuid.UUID, error) {
			return id, nil
		},
	}
	srv := newServer(t, sys, 1<<20)

	body, contentType := multipartBody(t, "report.txt", []byte("quarterly report"))
	resp, err := http.Post(srv.URL+"/api/v1/analyze/async", contentType, body)
	if err != nil {
		t.Fatalf("POST /analyze/async failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", resp.StatusCode)
	}

	var ack documents.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if ack.ID != id {
		t.Errorf("expected id %s, got %s", id, ack.ID)
	}
	if ack.StatusURL != "/api/v1/documents/"+id.String() {
		t.Errorf("unexpected status URL: %s", ack.StatusURL)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	sys := &stubSystem{}
	srv := newServer(t, sys, 1<<20)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("name", "no file attached")
	writer.Close()

	resp, err := http.Post(srv.URL+"/api/v1/analyze", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /analyze failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestAnalyzeFileTooLarge(t *testing.T) {
	sys := &stubSystem{}
	srv := newServer(t, sys, 16)

	body, contentType := multipartBody(t, "big.bin", bytes.Repeat([]byte("x"), 1024))
	resp, err := http.Post(srv.URL+"/api/v1/analyze", contentType, body)
	if err != nil {
		t.Fatalf("POST /analyze failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", resp.StatusCode)
	}
}

func TestFindTask(t *testing.T) {
	id := uuid.New()
	sys := &stubSystem{
		status: func(got uuid.UUID) (*tasks.Task, error) {
			if got != id {
				return nil, tasks.ErrNotFound
			}
			task := tasks.New("pending.txt", "text/plain", 12, nil)
			task.ID = id
			task.State = tasks.StatePolling
			return &task, nil
		},
	}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Get(srv.URL + "/api/v1/documents/" + id.String())
	if err != nil {
		t.Fatalf("GET /documents/{id} failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var task tasks.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if task.ID != id || task.State != tasks.StatePolling {
		t.Errorf("unexpected task snapshot: %+v", task)
	}
}

func TestListTasks(t *testing.T) {
	completed := tasks.New("done.pdf", "application/pdf", 10, nil)
	completed.State = tasks.StateCompleted
	polling := tasks.New("working.pdf", "application/pdf", 10, nil)
	polling.State = tasks.StatePolling
	text := tasks.New("notes.txt", "text/plain", 10, nil)

	sys := &stubSystem{list: []tasks.Task{completed, polling, text}}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Get(srv.URL + "/api/v1/documents?state=polling")
	if err != nil {
		t.Fatalf("GET /documents failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var page struct {
		Data  []tasks.Task `json:"data"`
		Total int          `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("expected one polling task, got %+v", page)
	}
	if page.Data[0].ID != polling.ID {
		t.Errorf("expected task %s, got %s", polling.ID, page.Data[0].ID)
	}
}

func TestListTasksSearch(t *testing.T) {
	invoice := tasks.New("invoice-2026.pdf", "application/pdf", 10, nil)
	report := tasks.New("report.pdf", "application/pdf", 10, nil)

	sys := &stubSystem{list: []tasks.Task{invoice, report}}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Get(srv.URL + "/api/v1/documents?search=INVOICE")
	if err != nil {
		t.Fatalf("GET /documents failed: %v", err)
	}
	defer resp.Body.Close()

	var page struct {
		Data []tasks.Task `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != invoice.ID {
		t.Fatalf("expected only the invoice task, got %+v", page.Data)
	}
}

func TestFindUnknownTask(t *testing.T) {
	sys := &stubSystem{
		status: func(uuid.UUID) (*tasks.Task, error) {
			return nil, tasks.ErrNotFound
		},
	}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Get(srv.URL + "/api/v1/documents/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET /documents/{id} failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestFindInvalidID(t *testing.T) {
	sys := &stubSystem{}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Get(srv.URL + "/api/v1/documents/not-a-uuid")
	if err != nil {
		t.Fatalf("GET /documents/{id} failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestCancelTask(t *testing.T) {
	sys := &stubSystem{}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Post(srv.URL+"/api/v1/documents/"+uuid.NewString()+"/cancel", "", nil)
	if err != nil {
		t.Fatalf("POST /cancel failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", resp.StatusCode)
	}
}

func TestCancelTerminalTask(t *testing.T) {
	sys := &stubSystem{cancelErr: orchestrator.ErrAlreadyTerminal}
	srv := newServer(t, sys, 1<<20)

	resp, err := http.Post(srv.URL+"/api/v1/documents/"+uuid.NewString()+"/cancel", "", nil)
	if err != nil {
		t.Fatalf("POST /cancel failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.StatusCode)
	}
}
