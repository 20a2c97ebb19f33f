/*-------------------------------------------------------------------------
 *
 * portal.go
 *    Portal inspection commands for portalagent-cli
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cli/cmd/portal.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/portalmind/PortalAgent/cli/pkg/client"
	"github.com/spf13/cobra"
)

var portalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered portals and their health",
	RunE:  listPortals,
}

var portalInventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Show the aggregated inventory of all healthy portals",
	RunE:  showInventory,
}

var portalMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Collect metrics from all healthy portals",
	RunE:  showPortalMetrics,
}

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Inspect portals",
	Long:  "List portals, their health, inventory, and metrics",
}

func init() {
	portalCmd.AddCommand(portalListCmd)
	portalCmd.AddCommand(portalInventoryCmd)
	portalCmd.AddCommand(portalMetricsCmd)
}

func listPortals(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	portals, err := apiClient.ListPortals()
	if err != nil {
		return fmt.Errorf("failed to list portals: %w", err)
	}

	if outputFormat == "json" {
		jsonData, _ := json.MarshalIndent(portals, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	if len(portals) == 0 {
		fmt.Println("No portals registered")
		return nil
	}
	for _, p := range portals {
		health := "unhealthy"
		if healthy, ok := p["healthy"].(bool); ok && healthy {
			health = "healthy"
		}
		fmt.Printf("%-20v %-10s %v\n", p["id"], health, p["capabilities"])
	}
	return nil
}

func showInventory(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	inventory, err := apiClient.GetInventory()
	if err != nil {
		return fmt.Errorf("failed to get inventory: %w", err)
	}

	jsonData, _ := json.MarshalIndent(inventory, "", "  ")
	fmt.Println(string(jsonData))
	return nil
}

func showPortalMetrics(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	collected, err := apiClient.CollectMetrics()
	if err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	jsonData, _ := json.MarshalIndent(collected, "", "  ")
	fmt.Println(string(jsonData))
	return nil
}
