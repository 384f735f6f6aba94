package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/node"
	"github.com/kbukum/microcosm/version"
)

const programName = "microcosm"

// flags are the command line fallbacks for the http_server section.
type flags struct {
	httpPort int
	httpAddr string
}

// apply fills the listen settings the config document left unset.
// Values from the document always win.
func (f flags) apply(cfg *node.Config) {
	if cfg.HTTPServer.Port == 0 && f.httpPort > 0 {
		cfg.HTTPServer.Port = f.httpPort
	}
	if cfg.HTTPServer.Address == "" && f.httpAddr != "" {
		cfg.HTTPServer.Address = f.httpAddr
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           programName + " [flags] <config>",
		Short:         "Run a microcosm node",
		Long:          `Runs one node of a microcosm deployment: the node fans out to its declared dependencies and serves the aggregated result tree.`,
		Args:          cobra.ExactArgs(1),
		Version:       version.GetShortVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], f)
		},
	}
	cmd.SetVersionTemplate(version.Banner(programName) + "\n")
	cmd.Flags().IntVar(&f.httpPort, "http-port", 0, "HTTP port used when the config sets none (default 5000)")
	cmd.Flags().StringVar(&f.httpAddr, "http-addr", "", "HTTP address used when the config sets none (default 0.0.0.0)")
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.IsFatal(err) {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
