package synapse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/models"
)

// DownloadFromTableParameters scopes one health-data table export to a
// single user and date range.
type DownloadFromTableParameters struct {
	SynapseTableID string
	HealthCode     string
	StartDate      models.Date
	EndDate        models.Date
	TempDir        string
	Schema         models.UploadSchema
}

// DownloadFromTableResult reports the files a table task produced. Both
// paths are empty when the table had no rows for the user and range.
type DownloadFromTableResult struct {
	CSVFile          string
	BulkDownloadFile string
}

// HasFiles reports whether the task produced anything to package.
func (r *DownloadFromTableResult) HasFiles() bool {
	return r.CSVFile != "" || r.BulkDownloadFile != ""
}

// taskFiles tracks every file a table task may create, so cleanup can undo
// whatever subset exists when something fails partway.
type taskFiles struct {
	csvFile    string
	bulkFile   string
	editedFile string
}

// DownloadFromTableTask exports one user's rows from a health-data table,
// bulk-downloads any attachments they reference, and rewrites the CSV so
// attachment cells name their entry in the attachment zip.
type DownloadFromTableTask struct {
	api    API
	fs     filespace.FileSpace
	params DownloadFromTableParameters
	log    zerolog.Logger
}

// NewDownloadFromTableTask builds a table export task.
func NewDownloadFromTableTask(api API, fs filespace.FileSpace, params DownloadFromTableParameters, logger zerolog.Logger) *DownloadFromTableTask {
	return &DownloadFromTableTask{api: api, fs: fs, params: params, log: logger}
}

// Execute runs the export. On any failure every file created so far is
// removed before the error is returned.
func (t *DownloadFromTableTask) Execute(ctx context.Context) (result *DownloadFromTableResult, err error) {
	tableID := t.params.SynapseTableID
	start := time.Now()
	defer func() {
		t.log.Info().
			Str("table", tableID).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("Table export finished")
	}()

	files := &taskFiles{}
	defer func() {
		if err != nil {
			t.cleanupFiles(files)
		}
	}()

	files.csvFile = t.fs.NewFile(t.params.TempDir, tableID+".csv")
	if err = t.downloadCSV(ctx, files.csvFile); err != nil {
		return nil, err
	}

	rowCount, handleIDs, err := t.scanCSV(files.csvFile)
	if err != nil {
		return nil, err
	}
	if rowCount == 0 {
		// Header-only export: the user has no rows in range. Drop the file so
		// the archive doesn't fill up with empty tables.
		if err = t.fs.Delete(files.csvFile); err != nil {
			return nil, fmt.Errorf("failed to delete empty export for %s: %w", tableID, err)
		}
		return &DownloadFromTableResult{}, nil
	}
	if len(handleIDs) == 0 {
		// No attachments referenced; the raw CSV ships as-is.
		return &DownloadFromTableResult{CSVFile: files.csvFile}, nil
	}

	bulkResp, err := t.api.GenerateBulkDownloadFileHandle(ctx, tableID, handleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk download attachments for %s: %w", tableID, err)
	}
	files.bulkFile = t.fs.NewFile(t.params.TempDir, tableID+"-attachments.zip")
	if err = t.api.DownloadFileHandle(ctx, bulkResp.ResultZipFileHandleID, files.bulkFile); err != nil {
		return nil, fmt.Errorf("failed to download attachment zip for %s: %w", tableID, err)
	}

	files.editedFile = t.fs.NewFile(t.params.TempDir, tableID+"-edited.csv")
	if err = t.rewriteCSV(files.csvFile, files.editedFile, bulkResp.FileSummary); err != nil {
		return nil, err
	}
	if err = t.fs.Delete(files.csvFile); err != nil {
		return nil, fmt.Errorf("failed to delete raw export for %s: %w", tableID, err)
	}
	files.csvFile = ""

	return &DownloadFromTableResult{CSVFile: files.editedFile, BulkDownloadFile: files.bulkFile}, nil
}

// downloadCSV exports the user's rows in range to targetPath.
func (t *DownloadFromTableTask) downloadCSV(ctx context.Context, targetPath string) error {
	tableID := t.params.SynapseTableID
	query := fmt.Sprintf("SELECT * FROM %s WHERE healthCode='%s' AND uploadDate >= '%s' AND uploadDate <= '%s'",
		tableID, t.params.HealthCode, t.params.StartDate, t.params.EndDate)
	handleID, err := t.api.GenerateFileHandleFromTableQuery(ctx, query, tableID)
	if err != nil {
		return fmt.Errorf("failed to export table %s: %w", tableID, err)
	}
	if err := t.api.DownloadFileHandle(ctx, handleID, targetPath); err != nil {
		return fmt.Errorf("failed to download export for %s: %w", tableID, err)
	}
	return nil
}

// scanCSV counts data rows and collects the attachment file handle IDs they
// reference, in row order without duplicates.
func (t *DownloadFromTableTask) scanCSV(csvPath string) (rowCount int, handleIDs []string, err error) {
	reader, err := t.fs.Reader(csvPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open export for %s: %w", t.params.SynapseTableID, err)
	}
	defer reader.Close()

	records := csv.NewReader(reader)
	header, err := records.Read()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read export header for %s: %w", t.params.SynapseTableID, err)
	}
	attachmentCols := t.attachmentColumnIndexes(header)

	seen := make(map[string]bool)
	for {
		record, readErr := records.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return 0, nil, fmt.Errorf("failed to read export for %s: %w", t.params.SynapseTableID, readErr)
		}
		rowCount++
		for _, col := range attachmentCols {
			if col >= len(record) {
				continue
			}
			if cell := record[col]; cell != "" && !seen[cell] {
				seen[cell] = true
				handleIDs = append(handleIDs, cell)
			}
		}
	}
	return rowCount, handleIDs, nil
}

// rewriteCSV copies the export to editedPath, replacing each attachment
// cell's file handle ID with its entry name in the attachment zip, or a
// failure marker when the bulk download could not include it.
func (t *DownloadFromTableTask) rewriteCSV(csvPath, editedPath string, summaries []BulkFileDownloadSummary) error {
	summaryByHandle := make(map[string]BulkFileDownloadSummary, len(summaries))
	for _, summary := range summaries {
		summaryByHandle[summary.FileHandleID] = summary
	}

	in, err := t.fs.Reader(csvPath)
	if err != nil {
		return fmt.Errorf("failed to reopen export for %s: %w", t.params.SynapseTableID, err)
	}
	defer in.Close()
	out, err := t.fs.Writer(editedPath)
	if err != nil {
		return fmt.Errorf("failed to create edited export for %s: %w", t.params.SynapseTableID, err)
	}

	records := csv.NewReader(in)
	writer := csv.NewWriter(out)
	header, err := records.Read()
	if err != nil {
		out.Close()
		return fmt.Errorf("failed to read export header for %s: %w", t.params.SynapseTableID, err)
	}
	if err := writer.Write(header); err != nil {
		out.Close()
		return fmt.Errorf("failed to write edited export for %s: %w", t.params.SynapseTableID, err)
	}
	attachmentCols := t.attachmentColumnIndexes(header)

	for {
		record, readErr := records.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			out.Close()
			return fmt.Errorf("failed to read export for %s: %w", t.params.SynapseTableID, readErr)
		}
		for _, col := range attachmentCols {
			if col >= len(record) || record[col] == "" {
				continue
			}
			summary, ok := summaryByHandle[record[col]]
			switch {
			case ok && summary.ZipEntryName != "":
				record[col] = summary.ZipEntryName
			case ok:
				record[col] = "[failed: " + summary.FailureCode + "]"
			default:
				record[col] = "[failed: NOT_IN_BULK_RESPONSE]"
			}
		}
		if err := writer.Write(record); err != nil {
			out.Close()
			return fmt.Errorf("failed to write edited export for %s: %w", t.params.SynapseTableID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		out.Close()
		return fmt.Errorf("failed to flush edited export for %s: %w", t.params.SynapseTableID, err)
	}
	return out.Close()
}

// attachmentColumnIndexes maps the schema's attachment field names to their
// column positions in the export header.
func (t *DownloadFromTableTask) attachmentColumnIndexes(header []string) []int {
	attachmentFields := t.params.Schema.AttachmentFieldNames()
	if len(attachmentFields) == 0 {
		return nil
	}
	var cols []int
	for i, name := range header {
		if attachmentFields[name] {
			cols = append(cols, i)
		}
	}
	return cols
}

// cleanupFiles removes whatever the task created before it failed. Failures
// here are logged and swallowed; the original error matters more.
func (t *DownloadFromTableTask) cleanupFiles(files *taskFiles) {
	for _, path := range []string{files.csvFile, files.bulkFile, files.editedFile} {
		if path == "" || !t.fs.Exists(path) {
			continue
		}
		if err := t.fs.Delete(path); err != nil {
			t.log.Error().Err(err).Str("file", path).Msg("Failed to clean up table task file")
		}
	}
}
