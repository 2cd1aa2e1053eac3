package cli

import (
	archivezip "archive/zip"
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/version"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive-key>",
		Short: "Fetch an uploaded archive and check it is a readable zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			cfg, _, store, err := loadConfigAndStore(ctx)
			if err != nil {
				return err
			}

			data, err := store.ReadBytes(ctx, cfg.UDD.UserdataBucket, key)
			if err != nil {
				return err
			}
			reader, err := archivezip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return fmt.Errorf("%s is not a readable zip: %w", key, err)
			}
			fmt.Printf("%s: %d bytes, %d entries\n", key, len(data), len(reader.File))
			for _, entry := range reader.File {
				fmt.Printf("  %s (%d bytes)\n", entry.Name, entry.UncompressedSize64)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bridge-udd %s (built %s)\n", version.Version, version.BuildTime)
		},
	}
}
