package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// studyguideMCPEntry is the MCP server configuration for the studyguide binary.
var studyguideMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "studyguide",
  "args": ["--serve-mcp", "--plan", "plan.yaml"]
}`)

// runInit registers the planner MCP server in the project's .mcp.json.
func (a *app) runInit(projectRoot string) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	if err := a.mergeMCPConfig(filepath.Join(abs, ".mcp.json")); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "\nSetup complete. The studyguide MCP server is ready.")
	return nil
}

// mergeMCPConfig creates or merges the studyguide entry into .mcp.json.
func (a *app) mergeMCPConfig(mcpPath string) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["studyguide"]; exists && !a.flags.Force {
		fmt.Fprintln(a.out, "  skipped .mcp.json studyguide entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["studyguide"] = studyguideMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(a.out, "  %s .mcp.json with studyguide MCP server\n", action)
	return nil
}
