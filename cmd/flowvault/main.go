// flowvault: captured-flow store and query MCP server.
//
// flowvault persists captured HTTP flows as chunked records in a SQLite
// database and exposes filter-based query tools over MCP (stdio transport).
//
// Usage:
//
//	flowvault serve    # Start MCP server (stdio transport)
//	flowvault update   # Update to the latest version
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"flowvault/internal/config"
	fvserver "flowvault/internal/server"
	"flowvault/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("flowvault v%s\n", fvserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// Logs go to stderr so they don't interfere with MCP's stdio
	// transport on stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := fvserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check, best-effort.
	go checkForUpdates()

	return server.ServeStdio(s)
}

// configPath returns the config file location: FLOWVAULT_CONFIG if set,
// otherwise ~/.flowvault/config.yaml.
func configPath() string {
	if p := os.Getenv("FLOWVAULT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".flowvault", "config.yaml")
}

// checkForUpdates runs a non-blocking version check and prints a notice to
// stderr if an update is available. Network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(fvserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"  Run: flowvault update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(fvserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(fvserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n  You can download manually from:\n  %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Restart flowvault to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `flowvault v%s - captured-flow store and query MCP server

Usage:
  flowvault serve    Start the MCP server (stdio transport)
  flowvault update   Update to the latest version

Configuration:
  Config file: ~/.flowvault/config.yaml (override with FLOWVAULT_CONFIG)

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "flowvault": {
        "command": "flowvault",
        "args": ["serve"]
      }
    }
  }
`, fvserver.Version)
}
