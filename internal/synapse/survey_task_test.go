package synapse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
)

func surveyTestSpace(t *testing.T) (*filespace.Memory, string) {
	t.Helper()
	fs := filespace.NewMemory()
	tmpDir, err := fs.CreateTempDir()
	if err != nil {
		t.Fatalf("CreateTempDir failed: %v", err)
	}
	return fs, tmpDir
}

func TestDownloadSurveyTask(t *testing.T) {
	fs, tmpDir := surveyTestSpace(t)
	api := &stubAPI{
		getTable: func(ctx context.Context, tableID string) (*TableEntity, error) {
			if tableID != "syn555" {
				t.Errorf("tableID = %s", tableID)
			}
			return &TableEntity{ID: "syn555", Name: "Daily Survey"}, nil
		},
		generateFileHandle: func(ctx context.Context, query, tableID string) (string, error) {
			if query != "SELECT * FROM syn555" {
				t.Errorf("query = %q", query)
			}
			return "fh-1", nil
		},
		downloadFileHandle: func(ctx context.Context, fileHandleID, targetPath string) error {
			w, err := fs.Writer(targetPath)
			if err != nil {
				return err
			}
			w.Write([]byte("survey,data\n"))
			return w.Close()
		},
	}

	task := NewDownloadSurveyTask(api, fs, DownloadSurveyParameters{SynapseTableID: "syn555", TempDir: tmpDir}, zerolog.Nop())
	csvPath, err := task.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasSuffix(csvPath, "Daily Survey.csv") {
		t.Errorf("csvPath = %q", csvPath)
	}
	if string(fs.Bytes(csvPath)) != "survey,data\n" {
		t.Errorf("content = %q", fs.Bytes(csvPath))
	}
}

func TestDownloadSurveyTaskGetTableError(t *testing.T) {
	fs, tmpDir := surveyTestSpace(t)
	wantErr := errors.New("no such table")
	api := &stubAPI{
		getTable: func(ctx context.Context, tableID string) (*TableEntity, error) {
			return nil, wantErr
		},
	}

	task := NewDownloadSurveyTask(api, fs, DownloadSurveyParameters{SynapseTableID: "syn555", TempDir: tmpDir}, zerolog.Nop())
	if _, err := task.Execute(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestDownloadSurveyTaskExportError(t *testing.T) {
	fs, tmpDir := surveyTestSpace(t)
	wantErr := errors.New("export blew up")
	api := &stubAPI{
		getTable: func(ctx context.Context, tableID string) (*TableEntity, error) {
			return &TableEntity{ID: "syn555", Name: "Daily Survey"}, nil
		},
		generateFileHandle: func(ctx context.Context, query, tableID string) (string, error) {
			return "", wantErr
		},
	}

	task := NewDownloadSurveyTask(api, fs, DownloadSurveyParameters{SynapseTableID: "syn555", TempDir: tmpDir}, zerolog.Nop())
	if _, err := task.Execute(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	// No file was written, so nothing should be left behind.
	if fs.Exists(fs.NewFile(tmpDir, "Daily Survey.csv")) {
		t.Error("no file should exist after failed export")
	}
}

func TestDownloadSurveyTaskDeletesPartialFile(t *testing.T) {
	fs, tmpDir := surveyTestSpace(t)
	wantErr := errors.New("connection reset")
	api := &stubAPI{
		getTable: func(ctx context.Context, tableID string) (*TableEntity, error) {
			return &TableEntity{ID: "syn555", Name: "Daily Survey"}, nil
		},
		generateFileHandle: func(ctx context.Context, query, tableID string) (string, error) {
			return "fh-1", nil
		},
		downloadFileHandle: func(ctx context.Context, fileHandleID, targetPath string) error {
			w, err := fs.Writer(targetPath)
			if err != nil {
				return err
			}
			w.Write([]byte("partial"))
			w.Close()
			return wantErr
		},
	}

	task := NewDownloadSurveyTask(api, fs, DownloadSurveyParameters{SynapseTableID: "syn555", TempDir: tmpDir}, zerolog.Nop())
	if _, err := task.Execute(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	if fs.Exists(fs.NewFile(tmpDir, "Daily Survey.csv")) {
		t.Error("partial file should have been deleted")
	}
}
