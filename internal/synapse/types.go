// Package synapse talks to the remote table service and orchestrates the
// per-request packaging work: async CSV exports, bulk attachment downloads,
// and the master archive upload.
package synapse

import "context"

// TableEntity is the resolved identity of a remote table.
type TableEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BulkFileDownloadSummary describes one requested file handle inside a bulk
// download response: either the path of the file inside the result zip, or
// a failure code explaining why it could not be included.
type BulkFileDownloadSummary struct {
	FileHandleID string `json:"fileHandleId"`
	ZipEntryName string `json:"zipEntryName,omitempty"`
	FailureCode  string `json:"failureCode,omitempty"`
}

// BulkFileDownloadResponse is the completed result of a bulk file download:
// a file handle for the zip of attachments plus a per-handle summary.
type BulkFileDownloadResponse struct {
	ResultZipFileHandleID string                    `json:"resultZipFileHandleId"`
	FileSummary           []BulkFileDownloadSummary `json:"fileSummary"`
}

// API is the surface of the Synapse helper the download tasks and the
// packager depend on. Client implements it against the real REST API;
// tests substitute stubs.
type API interface {
	// GetTable resolves a table ID to its entity, which carries the
	// user-facing table name.
	GetTable(ctx context.Context, tableID string) (*TableEntity, error)

	// GenerateFileHandleFromTableQuery runs an async CSV export for the
	// query and returns the file handle ID of the result, polling until the
	// export completes.
	GenerateFileHandleFromTableQuery(ctx context.Context, query, tableID string) (string, error)

	// DownloadFileHandle downloads the file behind a handle to targetPath.
	DownloadFileHandle(ctx context.Context, fileHandleID, targetPath string) error

	// GenerateBulkDownloadFileHandle bulk-downloads the given file handles
	// for a table, polling until the zip is built.
	GenerateBulkDownloadFileHandle(ctx context.Context, tableID string, fileHandleIDs []string) (*BulkFileDownloadResponse, error)
}
