/*-------------------------------------------------------------------------
 *
 * root.go
 *    Root command and global flags for portalagent-cli
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cli/cmd/root.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL       string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "portalagent-cli",
	Short: "PortalAgent CLI - Talk to your portals in plain language",
	Long: `PortalAgent CLI provides commands for conversing with the PortalAgent
server, running workflows, and inspecting registered portals.

Examples:
  # Interactive conversation
  portalagent-cli chat

  # One-shot message
  portalagent-cli chat "backup the sales database"

  # Run a workflow template
  portalagent-cli workflow run --template backup_workflow

  # Dry-run a workflow from a message
  portalagent-cli workflow run --message "migrate orders to staging" --dry-run

  # List registered portals
  portalagent-cli portal list
`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", getEnvOrDefault("PORTALAGENT_URL", "http://localhost:8080"), "PortalAgent API URL")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(portalCmd)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
