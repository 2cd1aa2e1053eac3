package synapse

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
)

func testClient(t *testing.T, serverURL string, fs filespace.FileSpace) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Synapse.BaseURL = serverURL
	cfg.Synapse.SessionToken = "test-token"
	cfg.Synapse.PollIntervalMillis = 0
	cfg.Synapse.PollMaxTries = 5
	return NewClient(cfg, &nethttp.Client{}, fs, zerolog.Nop())
}

func TestGetTable(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/repo/v1/entity/syn123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(TableEntity{ID: "syn123", Name: "Health Data"})
	}))
	defer server.Close()

	client := testClient(t, server.URL, filespace.NewMemory())
	entity, err := client.GetTable(context.Background(), "syn123")
	if err != nil {
		t.Fatalf("GetTable failed: %v", err)
	}
	if entity.Name != "Health Data" {
		t.Errorf("Name = %q", entity.Name)
	}
}

func TestGetTableServiceError(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, "entity not found", nethttp.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL, filespace.NewMemory())
	_, err := client.GetTable(context.Background(), "syn404")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want ServiceError", err)
	}
	if svcErr.StatusCode != nethttp.StatusNotFound {
		t.Errorf("StatusCode = %d", svcErr.StatusCode)
	}
}

func TestGenerateFileHandleFromTableQuery(t *testing.T) {
	var polls int32
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/repo/v1/entity/syn123/table/download/csv/async/start":
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["sql"] != "SELECT * FROM syn123" {
				t.Errorf("sql = %v", body["sql"])
			}
			if body["writeHeader"] != true {
				t.Error("writeHeader should be true")
			}
			if body["includeRowIdAndRowVersion"] != false {
				t.Error("includeRowIdAndRowVersion should be false")
			}
			json.NewEncoder(w).Encode(asyncJobToken{Token: "job-1"})
		case "/repo/v1/entity/syn123/table/download/csv/async/get/job-1":
			// Report not-ready on the first two polls.
			if atomic.AddInt32(&polls, 1) <= 2 {
				w.WriteHeader(nethttp.StatusAccepted)
				return
			}
			json.NewEncoder(w).Encode(csvExportResult{ResultsFileHandleID: "fh-99"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(nethttp.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL, filespace.NewMemory())
	handleID, err := client.GenerateFileHandleFromTableQuery(context.Background(), "SELECT * FROM syn123", "syn123")
	if err != nil {
		t.Fatalf("GenerateFileHandleFromTableQuery failed: %v", err)
	}
	if handleID != "fh-99" {
		t.Errorf("handleID = %q", handleID)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestGenerateFileHandleTimesOut(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method == "POST" {
			json.NewEncoder(w).Encode(asyncJobToken{Token: "job-1"})
			return
		}
		w.WriteHeader(nethttp.StatusAccepted)
	}))
	defer server.Close()

	client := testClient(t, server.URL, filespace.NewMemory())
	_, err := client.GenerateFileHandleFromTableQuery(context.Background(), "SELECT * FROM syn123", "syn123")
	var timeoutErr *AsyncTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want AsyncTimeoutError", err)
	}
	if timeoutErr.Tries != 5 {
		t.Errorf("Tries = %d", timeoutErr.Tries)
	}
}

func TestGenerateBulkDownloadFileHandle(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/file/v1/file/bulk/async/start":
			var body bulkDownloadRequest
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.RequestedFiles) != 2 {
				t.Errorf("requested files = %d", len(body.RequestedFiles))
			}
			if body.RequestedFiles[0].AssociateObjectID != "syn123" ||
				body.RequestedFiles[0].AssociateObjectType != "TableEntity" {
				t.Errorf("association = %+v", body.RequestedFiles[0])
			}
			json.NewEncoder(w).Encode(asyncJobToken{Token: "bulk-1"})
		case "/file/v1/file/bulk/async/get/bulk-1":
			json.NewEncoder(w).Encode(BulkFileDownloadResponse{
				ResultZipFileHandleID: "zip-fh",
				FileSummary: []BulkFileDownloadSummary{
					{FileHandleID: "fh-1", ZipEntryName: "attachments/fh-1.json"},
					{FileHandleID: "fh-2", FailureCode: "NOT_FOUND"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(nethttp.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(t, server.URL, filespace.NewMemory())
	resp, err := client.GenerateBulkDownloadFileHandle(context.Background(), "syn123", []string{"fh-1", "fh-2"})
	if err != nil {
		t.Fatalf("GenerateBulkDownloadFileHandle failed: %v", err)
	}
	if resp.ResultZipFileHandleID != "zip-fh" {
		t.Errorf("ResultZipFileHandleID = %q", resp.ResultZipFileHandleID)
	}
	if len(resp.FileSummary) != 2 || resp.FileSummary[1].FailureCode != "NOT_FOUND" {
		t.Errorf("FileSummary = %+v", resp.FileSummary)
	}
}

func TestDownloadFileHandle(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/file/v1/fileHandle/fh-7/url":
			json.NewEncoder(w).Encode(fileHandleURL{URL: server.URL + "/content"})
		case "/content":
			w.Write([]byte("csv,data\n1,2\n"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(nethttp.StatusNotFound)
		}
	}))
	defer server.Close()

	fs := filespace.NewMemory()
	tmpDir, err := fs.CreateTempDir()
	if err != nil {
		t.Fatalf("CreateTempDir failed: %v", err)
	}
	target := fs.NewFile(tmpDir, "download.csv")

	client := testClient(t, server.URL, fs)
	if err := client.DownloadFileHandle(context.Background(), "fh-7", target); err != nil {
		t.Fatalf("DownloadFileHandle failed: %v", err)
	}
	if content := fs.Bytes(target); string(content) != "csv,data\n1,2\n" {
		t.Errorf("content = %q", string(content))
	}
}
