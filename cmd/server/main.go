package main

import (
	"fmt"
	"net"
	"net/rpc"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mikekulinski/zkmirror/pkg/server"
)

const serviceName = "Watch"

func main() {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "zkwatchd",
		Short: "Run an in-memory watch server",
		RunE: func(_ *cobra.Command, _ []string) error {
			rpcServer := rpc.NewServer()
			if err := rpcServer.RegisterName(serviceName, server.NewServer()); err != nil {
				return fmt.Errorf("register error: %w", err)
			}

			l, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return fmt.Errorf("listen error: %w", err)
			}

			log.WithField("addr", l.Addr().String()).Info("Listening for watch clients")
			rpcServer.Accept(l)
			return nil
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address to listen on")

	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("Watch server failed")
		os.Exit(1)
	}
}
