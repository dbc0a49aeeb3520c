package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmware-archive/salt-ci/common/util"
	"github.com/vmware-archive/salt-ci/common/version"
	"github.com/vmware-archive/salt-ci/server/app"
)

const shutdownTimeout = time.Minute * 5

var configFilePath string

var rootCmd = &cobra.Command{
	Use:           "saltci-server",
	Short:         "Salt CI coordination server",
	Version:       version.VersionToString(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := app.NewViper(cmd.Flags())
		if err != nil {
			return err
		}
		err = app.ReadConfigFile(v, configFilePath)
		if err != nil {
			return err
		}
		config, err := app.ConfigFromViper(v)
		if err != nil {
			return fmt.Errorf("error parsing config: %w", err)
		}
		return run(config)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "The config file to load. Defaults to salt-ci-web.yaml in the config directory or the working directory.")
	app.RegisterFlags(rootCmd.Flags())
}

func main() {
	fmt.Printf("Salt CI Server v%s\n", version.VersionToString())
	fmt.Printf("Starting with args: %v\n", util.FilterOSArgs(os.Args, append(app.LogSafeFlags, "config")))
	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("Error: %s", err)
	}
}

func run(config *app.ServerConfig) error {
	server, cleanup, err := app.New(context.Background(), config)
	if err != nil {
		return fmt.Errorf("error creating app: %w", err)
	}
	defer cleanup()
	server.AppAPIServer.Start()

	// Wait for SIGINT or SIGTERM before shutting down server
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = server.AppAPIServer.Stop(ctx)
	if err != nil {
		return err
	}
	log.Print("Server shutdown complete")
	return nil
}
