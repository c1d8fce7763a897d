package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	frtls "github.com/dd0wney/cluso-frlayout/pkg/tls"
)

func newCertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Create or inspect the server certificate",
	}
	cmd.AddCommand(newCertGenerateCmd(), newCertInfoCmd())
	return cmd
}

func newCertGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a self-signed certificate and key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := frtls.DefaultConfig()
			flags := cmd.Flags()
			certFile, _ := flags.GetString("cert")
			keyFile, _ := flags.GetString("key")
			if flags.Changed("host") {
				cfg.Hosts, _ = flags.GetStringSlice("host")
			}
			cfg.ValidFor, _ = flags.GetDuration("valid-for")

			if err := frtls.GenerateAndSaveCertificate(cfg, certFile, keyFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", certFile, keyFile)
			return nil
		},
	}
	cmd.Flags().String("cert", "server.crt", "certificate output path")
	cmd.Flags().String("key", "server.key", "private key output path")
	cmd.Flags().StringSlice("host", nil, "hostnames and IPs to cover (default localhost, 127.0.0.1)")
	cmd.Flags().Duration("valid-for", 365*24*time.Hour, "validity period")
	return cmd
}

func newCertInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info CERT",
		Short: "Print a certificate's subject, names and validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := frtls.GetCertificateInfo(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subject:    %s\n", info.Subject)
			fmt.Fprintf(out, "not before: %s\n", info.NotBefore.Format(time.RFC3339))
			fmt.Fprintf(out, "not after:  %s\n", info.NotAfter.Format(time.RFC3339))
			for _, name := range info.DNSNames {
				fmt.Fprintf(out, "dns:        %s\n", name)
			}
			for _, ip := range info.IPs {
				fmt.Fprintf(out, "ip:         %s\n", ip)
			}
			if info.IsExpired() {
				fmt.Fprintln(out, "status:     expired")
			} else {
				fmt.Fprintln(out, "status:     valid")
			}
			return nil
		},
	}
}
