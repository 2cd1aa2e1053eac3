package synapse

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
)

// DownloadSurveyParameters identifies one survey metadata table to export
// and the scratch directory to export it into.
type DownloadSurveyParameters struct {
	SynapseTableID string
	TempDir        string
}

// DownloadSurveyTask exports a full survey metadata table to a CSV named
// after the table. Survey tables are small and carry no attachments, so the
// export is a plain unfiltered SELECT.
type DownloadSurveyTask struct {
	api    API
	fs     filespace.FileSpace
	params DownloadSurveyParameters
	log    zerolog.Logger
}

// NewDownloadSurveyTask builds a survey export task.
func NewDownloadSurveyTask(api API, fs filespace.FileSpace, params DownloadSurveyParameters, logger zerolog.Logger) *DownloadSurveyTask {
	return &DownloadSurveyTask{api: api, fs: fs, params: params, log: logger}
}

// Execute runs the export and returns the path of the resulting CSV. On any
// failure a partially written file is removed before the error is returned.
func (t *DownloadSurveyTask) Execute(ctx context.Context) (csvPath string, err error) {
	tableID := t.params.SynapseTableID
	start := time.Now()
	defer func() {
		t.log.Info().
			Str("table", tableID).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("Survey table export finished")
	}()

	entity, err := t.api.GetTable(ctx, tableID)
	if err != nil {
		return "", fmt.Errorf("failed to get survey table %s: %w", tableID, err)
	}

	target := t.fs.NewFile(t.params.TempDir, entity.Name+".csv")
	defer func() {
		if err != nil && t.fs.Exists(target) {
			if delErr := t.fs.Delete(target); delErr != nil {
				t.log.Error().Err(delErr).Str("file", target).Msg("Failed to delete partial survey file")
			}
		}
	}()

	handleID, err := t.api.GenerateFileHandleFromTableQuery(ctx, "SELECT * FROM "+tableID, tableID)
	if err != nil {
		return "", fmt.Errorf("failed to export survey table %s: %w", tableID, err)
	}
	if err = t.api.DownloadFileHandle(ctx, handleID, target); err != nil {
		return "", fmt.Errorf("failed to download survey table %s: %w", tableID, err)
	}
	return target, nil
}
