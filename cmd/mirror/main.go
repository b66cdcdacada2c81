package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mikekulinski/zkmirror/pkg/client"
	"github.com/mikekulinski/zkmirror/pkg/mirror"
	"github.com/mikekulinski/zkmirror/pkg/watch"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		log.WithError(err).Error("Mirror failed")
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var server string
	var verbose bool
	var cfg mirror.Config

	cmd := &cobra.Command{
		Use:   "zkmirror",
		Short: "Mirror a remote tree or subtree onto the local filesystem (read only)",

		// The error is logged by main, so silence cobra's own printing to
		// avoid doubling up.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			if err := watch.ValidateRootPath(cfg.RemotePath); err != nil {
				return fmt.Errorf("invalid remote path %q: %w", cfg.RemotePath, err)
			}
			return run(server, cfg)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "the watch server to connect to (host:port)")
	cmd.Flags().StringVar(&cfg.RemotePath, "path", "/", "the remote path of the root node to mirror")
	cmd.Flags().StringVar(&cfg.OutDir, "out", ".", "the local directory to mirror into")
	cmd.Flags().BoolVarP(&cfg.ForceClean, "force", "f", false, "recursively delete the output directory if not empty on startup")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every event")
	cmd.Flags().BoolVarP(&cfg.ExitAfterSync, "exit-after-sync", "x", false, "exit after the initial mirror is built")
	_ = cmd.MarkFlagRequired("server")

	return cmd
}

func run(server string, cfg mirror.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.NewClient(server)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("Failed to close the watch connection")
		}
	}()

	driver := mirror.NewDriver(afero.NewOsFs(), c, cfg)
	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
