/*-------------------------------------------------------------------------
 *
 * chat.go
 *    Conversation commands for portalagent-cli
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cli/cmd/chat.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/portalmind/PortalAgent/cli/pkg/client"
	"github.com/spf13/cobra"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Converse with the agent",
	Long:  "Send a single message, or start an interactive conversation when no message is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Resume an existing session by ID")
}

func runChat(cmd *cobra.Command, args []string) error {
	apiClient := client.NewClient(apiURL)

	if len(args) == 1 {
		resp, err := apiClient.Chat(chatSessionID, args[0])
		if err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}
		printChatResponse(resp)
		return nil
	}

	/* Interactive loop */
	fmt.Println("PortalAgent interactive chat. Type 'exit' to quit.")
	sessionID := chatSessionID
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		resp, err := apiClient.Chat(sessionID, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		sessionID = resp.SessionID
		printChatResponse(resp)
	}

	return scanner.Err()
}

func printChatResponse(resp *client.ChatResponse) {
	if outputFormat == "json" {
		jsonData, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println(resp.Message)

	if resp.Intent != "" && resp.Intent != "unknown" {
		fmt.Printf("  intent: %s (confidence %.2f)\n", resp.Intent, resp.Confidence)
	}
	for _, q := range resp.ClarifyingQuestions {
		fmt.Printf("  ? %s\n", q)
	}
	if resp.RequiresConfirmation && resp.PendingOperationID != "" {
		fmt.Printf("  ! %s risk operation pending, confirm with 'yes' or cancel with 'no'\n", resp.RiskLevel)
	}
	for _, a := range resp.SuggestedActions {
		fmt.Printf("  - %s\n", a)
	}
}
