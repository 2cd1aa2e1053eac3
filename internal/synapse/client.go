package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
)

// retryLogger adapts our structured logger to the retryablehttp
// LeveledLogger interface. Only warnings and errors are surfaced; retry
// chatter at info/debug level drowns the worker logs.
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Msgf("%s %v", msg, keysAndValues)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Msgf("%s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

// Client is the Synapse REST API client. It wraps every async call pattern
// (start + poll + download) so the download tasks never deal with tokens or
// polling directly. Thread-safe; tasks share one client.
type Client struct {
	httpClient   *nethttp.Client
	baseURL      string
	sessionToken string
	pollCfg      PollConfig
	fs           filespace.FileSpace
	log          zerolog.Logger
}

// NewClient builds a Client from config. The supplied base HTTP client
// (proxy-aware) is wrapped with retry logic for transient transport
// failures; "not ready yet" responses are not retried here but surface as
// ErrResultNotReady for the poll loop.
func NewClient(cfg *config.Config, base *nethttp.Client, fs filespace.FileSpace, logger zerolog.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = &retryLogger{log: logger}

	return &Client{
		httpClient:   retryClient.StandardClient(),
		baseURL:      strings.TrimSuffix(cfg.Synapse.BaseURL, "/"),
		sessionToken: cfg.Synapse.SessionToken,
		pollCfg: PollConfig{
			Interval: time.Duration(cfg.Synapse.PollIntervalMillis) * time.Millisecond,
			MaxTries: cfg.Synapse.PollMaxTries,
		},
		fs:  fs,
		log: logger,
	}
}

// doRequest performs an authenticated JSON request.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: method + " " + path, Message: err.Error()}
	}
	return resp, nil
}

// decodeResponse closes the body and either decodes a 2xx JSON payload into
// out, or converts the status into the appropriate error. HTTP 202 means an
// async job is still running.
func decodeResponse(resp *nethttp.Response, op string, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode == nethttp.StatusAccepted {
		io.Copy(io.Discard, resp.Body)
		return ErrResultNotReady
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Op: op, Message: "failed to decode response: " + err.Error()}
	}
	return nil
}

// GetTable resolves a table entity by ID.
func (c *Client) GetTable(ctx context.Context, tableID string) (*TableEntity, error) {
	resp, err := c.doRequest(ctx, "GET", "/repo/v1/entity/"+tableID, nil)
	if err != nil {
		return nil, err
	}
	var entity TableEntity
	if err := decodeResponse(resp, "get table "+tableID, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

type asyncJobToken struct {
	Token string `json:"token"`
}

type csvExportRequest struct {
	SQL                       string `json:"sql"`
	WriteHeader               bool   `json:"writeHeader"`
	IncludeRowIDAndRowVersion bool   `json:"includeRowIdAndRowVersion"`
}

type csvExportResult struct {
	ResultsFileHandleID string `json:"resultsFileHandleId"`
}

// GenerateFileHandleFromTableQuery runs a query against a table and returns
// the file handle ID of the results in CSV form, driving the async export
// job to completion.
func (c *Client) GenerateFileHandleFromTableQuery(ctx context.Context, query, tableID string) (string, error) {
	startBody := csvExportRequest{SQL: query, WriteHeader: true, IncludeRowIDAndRowVersion: false}
	resp, err := c.doRequest(ctx, "POST", "/repo/v1/entity/"+tableID+"/table/download/csv/async/start", startBody)
	if err != nil {
		return "", err
	}
	var token asyncJobToken
	if err := decodeResponse(resp, "start csv export for "+tableID, &token); err != nil {
		return "", err
	}

	result, err := pollAsync(ctx, c.pollCfg, "csv export for "+tableID,
		func(ctx context.Context) (*csvExportResult, error) {
			resp, err := c.doRequest(ctx, "GET",
				"/repo/v1/entity/"+tableID+"/table/download/csv/async/get/"+token.Token, nil)
			if err != nil {
				return nil, err
			}
			var out csvExportResult
			if err := decodeResponse(resp, "poll csv export for "+tableID, &out); err != nil {
				return nil, err
			}
			return &out, nil
		})
	if err != nil {
		return "", err
	}
	return result.ResultsFileHandleID, nil
}

type fileHandleAssociation struct {
	FileHandleID        string `json:"fileHandleId"`
	AssociateObjectID   string `json:"associateObjectId"`
	AssociateObjectType string `json:"associateObjectType"`
}

type bulkDownloadRequest struct {
	RequestedFiles []fileHandleAssociation `json:"requestedFiles"`
}

// GenerateBulkDownloadFileHandle bulk-downloads the specified file handles
// for the specified table. The response carries a file handle ID for the
// resulting zip, which must then be downloaded separately.
func (c *Client) GenerateBulkDownloadFileHandle(ctx context.Context, tableID string, fileHandleIDs []string) (*BulkFileDownloadResponse, error) {
	reqFiles := make([]fileHandleAssociation, 0, len(fileHandleIDs))
	for _, handleID := range fileHandleIDs {
		reqFiles = append(reqFiles, fileHandleAssociation{
			FileHandleID:        handleID,
			AssociateObjectID:   tableID,
			AssociateObjectType: "TableEntity",
		})
	}

	resp, err := c.doRequest(ctx, "POST", "/file/v1/file/bulk/async/start", bulkDownloadRequest{RequestedFiles: reqFiles})
	if err != nil {
		return nil, err
	}
	var token asyncJobToken
	if err := decodeResponse(resp, "start bulk download for "+tableID, &token); err != nil {
		return nil, err
	}

	return pollAsync(ctx, c.pollCfg, "bulk download for "+tableID,
		func(ctx context.Context) (*BulkFileDownloadResponse, error) {
			resp, err := c.doRequest(ctx, "GET", "/file/v1/file/bulk/async/get/"+token.Token, nil)
			if err != nil {
				return nil, err
			}
			var out BulkFileDownloadResponse
			if err := decodeResponse(resp, "poll bulk download for "+tableID, &out); err != nil {
				return nil, err
			}
			return &out, nil
		})
}

type fileHandleURL struct {
	URL string `json:"url"`
}

// DownloadFileHandle downloads the file behind a handle to targetPath via
// its temporary URL. The write goes through the FileSpace so the packager's
// cleanup accounting sees it.
func (c *Client) DownloadFileHandle(ctx context.Context, fileHandleID, targetPath string) error {
	resp, err := c.doRequest(ctx, "GET", "/file/v1/fileHandle/"+fileHandleID+"/url?redirect=false", nil)
	if err != nil {
		return err
	}
	var handleURL fileHandleURL
	if err := decodeResponse(resp, "resolve file handle "+fileHandleID, &handleURL); err != nil {
		return err
	}
	c.log.Debug().Str("fileHandle", fileHandleID).Str("target", targetPath).Msg("Downloading file handle")

	req, err := nethttp.NewRequestWithContext(ctx, "GET", handleURL.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	dlResp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Op: "download file handle " + fileHandleID, Message: err.Error()}
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(dlResp.Body, 4096))
		return &ServiceError{Op: "download file handle " + fileHandleID, StatusCode: dlResp.StatusCode, Message: string(body)}
	}

	out, err := c.fs.Writer(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", targetPath, err)
	}
	if _, err := io.Copy(out, dlResp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", targetPath, err)
	}
	return out.Close()
}
