package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/models"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/storage"
)

// directoryFile is the JSON document describing accounts and studies. It
// can live on local disk or as a small object in the userdata bucket.
//
// Format:
//
//	{
//	  "accounts": [
//	    {"userId": "u1", "emailAddress": "u1@example.com", "healthCode": "hc1"}
//	  ],
//	  "studies": {
//	    "parkinson": {
//	      "schemas": [
//	        {"synapseTableId": "syn123", "schema": {"key": {...}, "fields": [...]}}
//	      ],
//	      "surveyTables": ["syn555"]
//	    }
//	  }
//	}
type directoryFile struct {
	Accounts []directoryAccount        `json:"accounts"`
	Studies  map[string]directoryStudy `json:"studies"`
}

type directoryAccount struct {
	UserID       string `json:"userId"`
	EmailAddress string `json:"emailAddress"`
	HealthCode   string `json:"healthCode"`
}

type directoryStudy struct {
	Schemas      []directorySchema `json:"schemas"`
	SurveyTables []string          `json:"surveyTables"`
}

type directorySchema struct {
	SynapseTableID string              `json:"synapseTableId"`
	Schema         models.UploadSchema `json:"schema"`
}

// Directory is a static AccountStore and SchemaCatalog loaded from a JSON
// document. Read-only after load.
type Directory struct {
	accounts map[string]models.AccountInfo
	studies  map[string]directoryStudy
}

// LoadDirectory parses a directory document.
func LoadDirectory(data []byte) (*Directory, error) {
	var file directoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("malformed directory: %w", err)
	}

	accounts := make(map[string]models.AccountInfo, len(file.Accounts))
	for _, entry := range file.Accounts {
		account, err := models.NewAccountInfo(entry.EmailAddress, entry.UserID, entry.HealthCode)
		if err != nil {
			return nil, fmt.Errorf("bad account %q: %w", entry.UserID, err)
		}
		accounts[entry.UserID] = account
	}
	return &Directory{accounts: accounts, studies: file.Studies}, nil
}

// LoadDirectoryFile loads a directory document from local disk.
func LoadDirectoryFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	return LoadDirectory(data)
}

// LoadDirectoryObject loads a directory document from the object store.
func LoadDirectoryObject(ctx context.Context, store storage.ObjectStore, bucket, key string) (*Directory, error) {
	data, err := store.ReadBytes(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s/%s: %w", bucket, key, err)
	}
	return LoadDirectory(data)
}

// GetAccount implements AccountStore.
func (d *Directory) GetAccount(ctx context.Context, userID string) (models.AccountInfo, error) {
	account, ok := d.accounts[userID]
	if !ok {
		return models.AccountInfo{}, fmt.Errorf("no such account: %s", userID)
	}
	return account, nil
}

// GetStudyTables implements SchemaCatalog. When multiple schema revisions
// map to the same table, the highest revision wins.
func (d *Directory) GetStudyTables(ctx context.Context, studyID string) (models.TableMapping, []string, error) {
	study, ok := d.studies[studyID]
	if !ok {
		return nil, nil, fmt.Errorf("no such study: %s", studyID)
	}
	mapping := models.TableMapping{}
	for _, entry := range study.Schemas {
		mapping.Put(entry.SynapseTableID, entry.Schema)
	}
	return mapping, study.SurveyTables, nil
}
