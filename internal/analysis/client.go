package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/construehq/construe/internal/config"
	"github.com/construehq/construe/internal/poller"
)

const authHeader = "Ocp-Apim-Subscription-Key"

// client talks to the content-understanding REST API. Submissions POST
// the document URL to the analyzer and read the Operation-Location
// header from the 202 response; status fetches GET that location.
type client struct {
	http       *http.Client
	endpoint   string
	apiKey     string
	apiVersion string
	analyzer   string
	logger     *slog.Logger
}

// New creates the HTTP analysis service from configuration.
func New(cfg *config.AnalysisConfig, logger *slog.Logger) Service {
	return &client{
		http:       &http.Client{Timeout: cfg.RequestTimeoutDuration()},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		analyzer:   cfg.Analyzer,
		logger:     logger.With("system", "analysis"),
	}
}

type submitRequest struct {
	Inputs []submitInput `json:"inputs"`
}

type submitInput struct {
	URL string `json:"url"`
}

func (c *client) Submit(ctx context.Context, documentURL, filename string) (*Operation, error) {
	analyzeURL := fmt.Sprintf("%s/%s:analyze?api-version=%s", c.endpoint, c.analyzer, c.apiVersion)

	body, err := json.Marshal(submitRequest{Inputs: []submitInput{{URL: documentURL}}})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, analyzeURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(authHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("submitting document", "filename", filename, "analyzer", c.analyzer)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrSubmissionRejected, resp.StatusCode, detail)
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return nil, ErrNoOperationLocation
	}

	return &Operation{Location: location}, nil
}

// operationEnvelope is the shape of the operation status document.
type operationEnvelope struct {
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) FetchStatus(ctx context.Context, op *Operation) (poller.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, op.Location, nil)
	if err != nil {
		return poller.Status{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(authHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return poller.Status{}, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return poller.Status{}, fmt.Errorf("read status body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return poller.Status{}, fmt.Errorf("fetch status: HTTP %d", resp.StatusCode)
	}

	var envelope operationEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return poller.Status{}, fmt.Errorf("decode status body: %w", err)
	}

	switch strings.ToLower(envelope.Status) {
	case "notstarted", "running":
		return poller.Status{Stage: poller.StageRunning}, nil
	case "succeeded":
		payload, err := parseResult(raw)
		if err != nil {
			return poller.Status{}, fmt.Errorf("parse result: %w", err)
		}
		return poller.Status{Stage: poller.StageSucceeded, Payload: payload}, nil
	case "failed", "cancelled":
		message := fmt.Sprintf("analysis %s", strings.ToLower(envelope.Status))
		if envelope.Error != nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return poller.Status{Stage: poller.StageFailed, Message: message}, nil
	default:
		return poller.Status{Stage: poller.StageFailed, Message: fmt.Sprintf("unknown operation status: %s", envelope.Status)}, nil
	}
}
