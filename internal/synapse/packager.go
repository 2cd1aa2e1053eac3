package synapse

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/clock"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/models"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/storage"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/util/zip"
)

const (
	errorLogName         = "error.log"
	metadataErrorLogName = "metadata-error.log"
)

// PackageParameters is one user's packaging job: which tables to pull their
// rows from, which survey metadata tables to include, and the date range.
type PackageParameters struct {
	HealthCode     string
	StartDate      models.Date
	EndDate        models.Date
	TableToSchema  models.TableMapping
	SurveyTableIDs []string
}

// Packager runs the download tasks for a request, zips the results, uploads
// the archive, and returns a pre-signed URL for it.
//
// Partial failures don't abort the job: a table that fails to export is
// reported inside the archive via an error log, and the rest of the user's
// data still ships.
type Packager struct {
	api             API
	fs              filespace.FileSpace
	store           storage.ObjectStore
	clock           clock.Clock
	zipHelper       *zip.Helper
	bucket          string
	expirationHours int
	workerThreads   int
	log             zerolog.Logger

	// Task runners, overridable in tests.
	runTableTask  func(ctx context.Context, params DownloadFromTableParameters) (*DownloadFromTableResult, error)
	runSurveyTask func(ctx context.Context, params DownloadSurveyParameters) (string, error)
}

// NewPackager wires a Packager from config and its collaborators.
func NewPackager(api API, fs filespace.FileSpace, store storage.ObjectStore, clk clock.Clock, cfg *config.Config, logger zerolog.Logger) *Packager {
	p := &Packager{
		api:             api,
		fs:              fs,
		store:           store,
		clock:           clk,
		zipHelper:       zip.NewHelper(fs),
		bucket:          cfg.UDD.UserdataBucket,
		expirationHours: cfg.UDD.URLExpirationHours,
		workerThreads:   cfg.UDD.WorkerThreads,
		log:             logger,
	}
	p.runTableTask = func(ctx context.Context, params DownloadFromTableParameters) (*DownloadFromTableResult, error) {
		return NewDownloadFromTableTask(p.api, p.fs, params, p.log).Execute(ctx)
	}
	p.runSurveyTask = func(ctx context.Context, params DownloadSurveyParameters) (string, error) {
		return NewDownloadSurveyTask(p.api, p.fs, params, p.log).Execute(ctx)
	}
	return p
}

// tableOutcome is the result of one table task, tagged with its table ID so
// error logs can name the table.
type tableOutcome struct {
	tableID string
	result  *DownloadFromTableResult
	err     error
}

type surveyOutcome struct {
	tableID string
	csvFile string
	err     error
}

// PackageData runs the whole packaging job. It returns nil (with no error)
// when there is nothing to package: no tables mapped, or no table produced
// either data or an error worth reporting. The scratch directory is removed
// on every path out.
func (p *Packager) PackageData(ctx context.Context, params PackageParameters) (*models.PresignedURLInfo, error) {
	if len(params.TableToSchema) == 0 {
		// Nothing to query. Survey metadata alone is not worth an archive.
		return nil, nil
	}

	tmpDir, err := p.fs.CreateTempDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() {
		if delErr := p.fs.DeleteDir(tmpDir); delErr != nil {
			p.log.Error().Err(delErr).Str("dir", tmpDir).Msg("Failed to remove scratch dir")
		}
	}()

	tableOutcomes, surveyOutcomes := p.runTasks(ctx, tmpDir, params)

	var archiveFiles []string
	for _, outcome := range tableOutcomes {
		if outcome.err == nil && outcome.result.HasFiles() {
			if outcome.result.CSVFile != "" {
				archiveFiles = append(archiveFiles, outcome.result.CSVFile)
			}
			if outcome.result.BulkDownloadFile != "" {
				archiveFiles = append(archiveFiles, outcome.result.BulkDownloadFile)
			}
		}
	}
	haveData := len(archiveFiles) > 0

	errorLog, err := p.writeErrorLog(tmpDir, errorLogName, tableErrorEntries(tableOutcomes))
	if err != nil {
		return nil, err
	}
	metadataErrorLog, err := p.writeErrorLog(tmpDir, metadataErrorLogName, surveyErrorEntries(surveyOutcomes))
	if err != nil {
		return nil, err
	}

	if !haveData && errorLog == "" && metadataErrorLog == "" {
		// The user has no data in range and nothing went wrong. No archive.
		return nil, nil
	}

	for _, outcome := range surveyOutcomes {
		if outcome.err == nil {
			archiveFiles = append(archiveFiles, outcome.csvFile)
		}
	}
	if errorLog != "" {
		archiveFiles = append(archiveFiles, errorLog)
	}
	if metadataErrorLog != "" {
		archiveFiles = append(archiveFiles, metadataErrorLog)
	}

	archiveName := fmt.Sprintf("userdata-%s-to-%s-%s.zip", params.StartDate, params.EndDate, randomSuffix())
	archivePath := p.fs.NewFile(tmpDir, archiveName)
	if err := p.zipHelper.Zip(archivePath, archiveFiles); err != nil {
		return nil, fmt.Errorf("failed to build archive: %w", err)
	}

	if err := p.store.PutFile(ctx, p.bucket, archiveName, archivePath); err != nil {
		return nil, fmt.Errorf("failed to upload archive: %w", err)
	}
	p.log.Info().Str("bucket", p.bucket).Str("key", archiveName).Int("files", len(archiveFiles)).
		Msg("Uploaded user data archive")

	expiration := p.clock.Now().Add(time.Duration(p.expirationHours) * time.Hour)
	url, err := p.store.PresignedGetURL(ctx, p.bucket, archiveName, expiration)
	if err != nil {
		return nil, fmt.Errorf("failed to presign archive URL: %w", err)
	}
	return &models.PresignedURLInfo{URL: url, ExpirationTime: expiration}, nil
}

// runTasks fans the table and survey downloads out over a bounded pool and
// waits for all of them. Outcomes come back in deterministic order: tables
// sorted by ID, surveys in request order.
func (p *Packager) runTasks(ctx context.Context, tmpDir string, params PackageParameters) ([]tableOutcome, []surveyOutcome) {
	tableIDs := make([]string, 0, len(params.TableToSchema))
	for tableID := range params.TableToSchema {
		tableIDs = append(tableIDs, tableID)
	}
	sort.Strings(tableIDs)

	tableOutcomes := make([]tableOutcome, len(tableIDs))
	surveyOutcomes := make([]surveyOutcome, len(params.SurveyTableIDs))

	threads := p.workerThreads
	if threads < 1 {
		threads = 1
	}
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup

	for i, tableID := range tableIDs {
		wg.Add(1)
		go func(i int, tableID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result, err := p.runTableTask(ctx, DownloadFromTableParameters{
				SynapseTableID: tableID,
				HealthCode:     params.HealthCode,
				StartDate:      params.StartDate,
				EndDate:        params.EndDate,
				TempDir:        tmpDir,
				Schema:         params.TableToSchema[tableID],
			})
			tableOutcomes[i] = tableOutcome{tableID: tableID, result: result, err: err}
		}(i, tableID)
	}
	for i, tableID := range params.SurveyTableIDs {
		wg.Add(1)
		go func(i int, tableID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			csvFile, err := p.runSurveyTask(ctx, DownloadSurveyParameters{
				SynapseTableID: tableID,
				TempDir:        tmpDir,
			})
			surveyOutcomes[i] = surveyOutcome{tableID: tableID, csvFile: csvFile, err: err}
		}(i, tableID)
	}
	wg.Wait()
	return tableOutcomes, surveyOutcomes
}

// errorEntry is one failed download, reported inside the archive.
type errorEntry struct {
	tableID string
	message string
}

func tableErrorEntries(outcomes []tableOutcome) []errorEntry {
	var entries []errorEntry
	for _, outcome := range outcomes {
		if outcome.err != nil {
			entries = append(entries, errorEntry{tableID: outcome.tableID, message: outcome.err.Error()})
		}
	}
	return entries
}

func surveyErrorEntries(outcomes []surveyOutcome) []errorEntry {
	var entries []errorEntry
	for _, outcome := range outcomes {
		if outcome.err != nil {
			entries = append(entries, errorEntry{tableID: outcome.tableID, message: outcome.err.Error()})
		}
	}
	return entries
}

// writeErrorLog writes the entries to a log file in tmpDir and returns its
// path, or "" when there are no entries. The log ships inside the archive,
// so it's written for the requesting user, not for operators.
func (p *Packager) writeErrorLog(tmpDir, name string, entries []errorEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	path := p.fs.NewFile(tmpDir, name)
	out, err := p.fs.Writer(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	var sb strings.Builder
	for _, entry := range entries {
		sb.WriteString(entry.tableID)
		sb.WriteString("\n")
		sb.WriteString(entry.message)
		sb.WriteString("\n\n")
	}
	if _, err := out.Write([]byte(sb.String())); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// randomSuffix returns a short random hex string so concurrent requests for
// the same user and range can't collide on the archive key.
func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is badly broken; fall back
		// to a fixed suffix rather than aborting the job.
		return "00000000"
	}
	return hex.EncodeToString(buf)
}
