package cli

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/clock"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/diskspace"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
	bridgehttp "github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/http"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/logging"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/progress"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/storage"
	azurestore "github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/storage/azure"
	s3store "github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/storage/s3"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/synapse"
	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/worker"
)

// minFreeBytes is the free-space floor for the scratch filesystem before a
// packaging job starts. Attachment zips for imaging studies run to
// hundreds of megabytes.
const minFreeBytes = 1 << 30

func newPackageCmd() *cobra.Command {
	var (
		directoryPath string
		directoryKey  string
	)

	cmd := &cobra.Command{
		Use:   "package [request.json]",
		Short: "Run one download request and print the archive URL",
		Long: `Reads a JSON download request ({"studyId", "userId", "startDate",
"endDate"}) from the given file, or from stdin when the argument is "-" or
omitted, packages the user's data, and prints the pre-signed archive URL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRequest(args)
			if err != nil {
				return err
			}
			return runPackage(cmd, raw, directoryPath, directoryKey)
		},
	}

	cmd.Flags().StringVar(&directoryPath, "directory", "", "Path to the accounts/studies directory JSON")
	cmd.Flags().StringVar(&directoryKey, "directory-key", "", "Object key of the directory JSON in the userdata bucket")
	return cmd
}

func readRequest(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read request from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read request %s: %w", args[0], err)
	}
	return raw, nil
}

// loadConfigAndStore builds the shared pieces every command needs: the
// loaded config, the proxy-aware HTTP client, and the configured object
// store backend.
func loadConfigAndStore(ctx context.Context) (*config.Config, *nethttp.Client, storage.ObjectStore, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	httpClient, err := bridgehttp.NewClient(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build HTTP client: %w", err)
	}
	var store storage.ObjectStore
	switch cfg.Storage.Provider {
	case "azure":
		store, err = azurestore.New(cfg, httpClient)
	default:
		store, err = s3store.New(ctx, cfg, httpClient, "", "")
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, httpClient, store, nil
}

func runPackage(cmd *cobra.Command, raw []byte, directoryPath, directoryKey string) error {
	ctx := cmd.Context()

	cfg, httpClient, store, err := loadConfigAndStore(ctx)
	if err != nil {
		return err
	}

	if err := diskspace.CheckAvailableSpace(os.TempDir(), minFreeBytes, 1.0); err != nil {
		return err
	}

	reporter := progress.New("Loading study directory")
	var directory *worker.Directory
	switch {
	case directoryPath != "":
		directory, err = worker.LoadDirectoryFile(directoryPath)
	case directoryKey != "":
		directory, err = worker.LoadDirectoryObject(ctx, store, cfg.UDD.UserdataBucket, directoryKey)
	default:
		return fmt.Errorf("one of --directory or --directory-key is required")
	}
	if err != nil {
		reporter.Finish()
		return err
	}

	fs := filespace.NewOS()
	api := synapse.NewClient(cfg, httpClient, fs, logging.New("synapse"))
	packager := synapse.NewPackager(api, fs, store, clock.System{}, cfg, logging.New("packager"))
	processor := worker.NewProcessor(directory, directory, packager, logging.New("worker"))

	reporter.Describe("Packaging user data")
	info, err := processor.Process(ctx, raw)
	reporter.Finish()
	if err != nil {
		return err
	}
	if info == nil {
		fmt.Fprintln(os.Stderr, "No data to package.")
		return nil
	}
	fmt.Println(info.URL)
	fmt.Fprintf(os.Stderr, "Expires: %s\n", info.ExpirationTime.Format("2006-01-02 15:04:05 MST"))
	return nil
}
