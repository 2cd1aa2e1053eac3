package main

import (
	"os"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
