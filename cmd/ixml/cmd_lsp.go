package main

import (
	"github.com/dhamidi/ixml/langserver"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server for grammar files",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := langserver.New("0.1.0")
			return server.RunStdio()
		},
	}
}
