// Package worker turns raw download requests into packaging jobs: it
// validates the request, resolves the account, looks up the study's table
// schemas, and hands the job to the packager.
package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/models"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/synapse"
)

// AccountStore resolves user IDs to account info.
type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (models.AccountInfo, error)
}

// SchemaCatalog maps a study to its health-data tables and survey metadata
// tables.
type SchemaCatalog interface {
	GetStudyTables(ctx context.Context, studyID string) (models.TableMapping, []string, error)
}

// Packager is the packaging entry point the processor drives.
type Packager interface {
	PackageData(ctx context.Context, params synapse.PackageParameters) (*models.PresignedURLInfo, error)
}

// Processor handles one download request end to end.
type Processor struct {
	accounts AccountStore
	catalog  SchemaCatalog
	packager Packager
	log      zerolog.Logger
}

// NewProcessor wires a Processor.
func NewProcessor(accounts AccountStore, catalog SchemaCatalog, packager Packager, logger zerolog.Logger) *Processor {
	return &Processor{accounts: accounts, catalog: catalog, packager: packager, log: logger}
}

// Process validates and runs one raw JSON request. A nil result with a nil
// error means the user had no data to package.
func (p *Processor) Process(ctx context.Context, raw []byte) (*models.PresignedURLInfo, error) {
	req, err := models.ParseRequest(raw)
	if err != nil {
		return nil, err
	}
	p.log.Info().
		Str("study", req.StudyID).
		Str("user", req.UserID).
		Str("startDate", req.StartDate.String()).
		Str("endDate", req.EndDate.String()).
		Msg("Processing download request")

	account, err := p.accounts.GetAccount(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account %s: %w", req.UserID, err)
	}
	if account.HealthCode() == "" {
		return nil, fmt.Errorf("account %s has no health code", req.UserID)
	}

	tableToSchema, surveyTableIDs, err := p.catalog.GetStudyTables(ctx, req.StudyID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tables for study %s: %w", req.StudyID, err)
	}

	info, err := p.packager.PackageData(ctx, synapse.PackageParameters{
		HealthCode:     account.HealthCode(),
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TableToSchema:  tableToSchema,
		SurveyTableIDs: surveyTableIDs,
	})
	if err != nil {
		return nil, err
	}
	if info == nil {
		p.log.Info().Str("user", req.UserID).Msg("No data to package")
		return nil, nil
	}
	p.log.Info().Str("user", req.UserID).Time("expires", info.ExpirationTime).Msg("Packaged user data")
	return info, nil
}
