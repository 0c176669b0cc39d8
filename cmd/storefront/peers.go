package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/example/storefront/pkg/discovery"
	"github.com/spf13/cobra"
)

func newPeersCmd() *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List service instances registered in etcd",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if len(cfg.Etcd.Endpoints) == 0 {
				return errors.New("etcd.endpoints is not configured")
			}
			if service == "" {
				service = cfg.Server.Name
			}

			sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
			if err != nil {
				return err
			}
			defer sd.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			instances, err := sd.Discover(ctx, service)
			if err != nil {
				return err
			}
			printPeers(cmd.OutOrStdout(), service, instances)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "service name to look up (defaults to server.name)")
	return cmd
}

func printPeers(w io.Writer, service string, instances []*discovery.ServiceInstance) {
	if len(instances) == 0 {
		fmt.Fprintf(w, "no %s instances registered\n", service)
		return
	}
	for _, instance := range instances {
		fmt.Fprintln(w, instance.Addr())
	}
}
