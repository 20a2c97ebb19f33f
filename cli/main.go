/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for portalagent-cli
 *
 * Copyright (c) 2024-2026, portalmind, Inc. <admin@portalmind.ai>
 *
 * IDENTIFICATION
 *    PortalAgent/cli/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"github.com/portalmind/PortalAgent/cli/cmd"
)

func main() {
	cmd.Execute()
}
