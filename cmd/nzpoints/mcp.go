package main

import (
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/pieme/nzpoints/internal/mcptools"
)

func newMCPCmd() *cobra.Command {
	var tf tableFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the points tools over MCP stdio",
		Long: "Serve points_evaluate and points_rules over the MCP stdio transport.\n" +
			"Logs go to stderr so they stay off the protocol stream.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(tf, false, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			a.log.Info("serving MCP over stdio")
			return server.ServeStdio(mcptools.NewServer(a.engine, time.Now, version))
		},
	}

	cmd.Flags().StringVar(&tf.rules, "rules", "", "Built-in rule table name")
	cmd.Flags().StringVar(&tf.rulesFile, "rules-file", "", "Custom rule table file")
	return cmd
}
