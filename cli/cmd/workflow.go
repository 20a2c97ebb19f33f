/*-------------------------------------------------------------------------
 *
 * workflow.go
 *    Workflow commands for portalagent-cli
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cli/cmd/workflow.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/portalmind/PortalAgent/cli/pkg/client"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	workflowTemplate string
	workflowMessage  string
	workflowFile     string
	workflowDryRun   bool
)

var workflowRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Build and execute a workflow",
	Long:  "Execute a workflow from a template, a natural language message, or a YAML step file",
	RunE:  runWorkflow,
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent workflow executions",
	RunE:  listWorkflows,
}

var workflowShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one workflow execution",
	Args:  cobra.ExactArgs(1),
	RunE:  showWorkflow,
}

var workflowCancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a running workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  cancelWorkflow,
}

var workflowTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List workflow templates",
	RunE:  listWorkflowTemplates,
}

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage workflows",
	Long:  "Run, list, inspect, and cancel workflows",
}

func init() {
	workflowRunCmd.Flags().StringVar(&workflowTemplate, "template", "", "Workflow template name")
	workflowRunCmd.Flags().StringVar(&workflowMessage, "message", "", "Natural language request to plan from")
	workflowRunCmd.Flags().StringVar(&workflowFile, "file", "", "YAML file with explicit steps")
	workflowRunCmd.Flags().BoolVar(&workflowDryRun, "dry-run", false, "Simulate destructive steps instead of executing them")

	workflowCmd.AddCommand(workflowRunCmd)
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowCancelCmd)
	workflowCmd.AddCommand(workflowTemplatesCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	request := map[string]interface{}{
		"dry_run": workflowDryRun,
	}

	switch {
	case workflowFile != "":
		data, err := os.ReadFile(workflowFile)
		if err != nil {
			return fmt.Errorf("failed to read workflow file: %w", err)
		}
		var spec struct {
			Name       string                   `yaml:"name"`
			Steps      []map[string]interface{} `yaml:"steps"`
			Parameters map[string]interface{}   `yaml:"parameters"`
		}
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("failed to parse workflow file: %w", err)
		}
		request["name"] = spec.Name
		request["steps"] = spec.Steps
		request["parameters"] = spec.Parameters

	case workflowTemplate != "":
		request["template"] = workflowTemplate

	case workflowMessage != "":
		request["message"] = workflowMessage

	default:
		return fmt.Errorf("one of --template, --message, or --file is required")
	}

	apiClient := client.NewClient(apiURL)
	resp, err := apiClient.ExecuteWorkflow(request)
	if err != nil {
		return fmt.Errorf("workflow execution failed: %w", err)
	}

	printExecution(resp)
	return nil
}

func listWorkflows(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	workflows, err := apiClient.ListWorkflows()
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	if outputFormat == "json" {
		jsonData, _ := json.MarshalIndent(workflows, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	if len(workflows) == 0 {
		fmt.Println("No workflow executions found")
		return nil
	}
	for _, wf := range workflows {
		fmt.Printf("%v  %v  started=%v\n", wf["id"], wf["status"], wf["started_at"])
	}
	return nil
}

func showWorkflow(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	resp, err := apiClient.GetWorkflow(args[0])
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}

	printExecution(resp)
	return nil
}

func cancelWorkflow(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	if err := apiClient.CancelWorkflow(args[0]); err != nil {
		return fmt.Errorf("failed to cancel workflow: %w", err)
	}

	fmt.Printf("Cancellation requested for %s\n", args[0])
	return nil
}

func listWorkflowTemplates(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)
	templates, err := apiClient.ListTemplates()
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	if outputFormat == "json" {
		jsonData, _ := json.MarshalIndent(templates, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	for _, tpl := range templates {
		fmt.Printf("%-24s %d steps\n", tpl.Name, tpl.StepCount)
	}
	return nil
}

func printExecution(resp *client.ExecutionResponse) {
	if outputFormat == "json" {
		jsonData, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Print(resp.Summary)
	if resp.CurrentStep != "" {
		fmt.Printf("Progress: %.0f%%, running: %s\n", resp.ProgressPercent, resp.CurrentStep)
	}
	for _, rec := range resp.Recommendations {
		fmt.Printf("  → %s\n", rec)
	}
}
