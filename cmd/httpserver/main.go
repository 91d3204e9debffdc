package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/scanview/report-store-backend/cmd/flags"
	"github.com/scanview/report-store-backend/httpserver"
	"github.com/scanview/report-store-backend/storage"
	"github.com/urfave/cli/v2"
)

var cliFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.StorageLocationFlag,
	flags.StoragePrefixFlag,
}, flags.CommonFlags...)

func main() {
	// Local overrides for development; absent file is fine.
	godotenv.Load()

	app := &cli.App{
		Name:  "report-store-server",
		Usage: "Serve the scan report file API over a configured storage backend",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			storageLocation := cCtx.String("storage-location")
			storagePrefix := cCtx.String("storage-prefix")

			logger := flags.SetupLogger(cCtx)

			factory := storage.NewProviderFactory(logger)
			provider, err := factory.CreateStorageProvider(storageLocation, storagePrefix)
			if err != nil {
				logger.Error("Failed to create storage provider", "err", err, "location", storageLocation)
				return err
			}

			logger.Info("Storage provider ready",
				"provider", storage.ProviderType(storageLocation),
				"location", provider.LocationURI(),
				"activePath", provider.ActivePath())

			handler := httpserver.NewHandler(provider, logger)

			cfg := flags.ConfigureServer(cCtx, logger, listenAddr)
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
