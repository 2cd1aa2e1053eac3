package synapse

import (
	"context"
	"errors"
)

// stubAPI lets tests script each API call independently. Unscripted calls
// fail loudly.
type stubAPI struct {
	getTable           func(ctx context.Context, tableID string) (*TableEntity, error)
	generateFileHandle func(ctx context.Context, query, tableID string) (string, error)
	downloadFileHandle func(ctx context.Context, fileHandleID, targetPath string) error
	bulkDownload       func(ctx context.Context, tableID string, fileHandleIDs []string) (*BulkFileDownloadResponse, error)
}

func (s *stubAPI) GetTable(ctx context.Context, tableID string) (*TableEntity, error) {
	if s.getTable == nil {
		return nil, errors.New("unexpected GetTable call")
	}
	return s.getTable(ctx, tableID)
}

func (s *stubAPI) GenerateFileHandleFromTableQuery(ctx context.Context, query, tableID string) (string, error) {
	if s.generateFileHandle == nil {
		return "", errors.New("unexpected GenerateFileHandleFromTableQuery call")
	}
	return s.generateFileHandle(ctx, query, tableID)
}

func (s *stubAPI) DownloadFileHandle(ctx context.Context, fileHandleID, targetPath string) error {
	if s.downloadFileHandle == nil {
		return errors.New("unexpected DownloadFileHandle call")
	}
	return s.downloadFileHandle(ctx, fileHandleID, targetPath)
}

func (s *stubAPI) GenerateBulkDownloadFileHandle(ctx context.Context, tableID string, fileHandleIDs []string) (*BulkFileDownloadResponse, error) {
	if s.bulkDownload == nil {
		return nil, errors.New("unexpected GenerateBulkDownloadFileHandle call")
	}
	return s.bulkDownload(ctx, tableID, fileHandleIDs)
}
