package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ludo-technologies/pyrefminer/internal/config"
	"github.com/ludo-technologies/pyrefminer/internal/version"
	"github.com/ludo-technologies/pyrefminer/mcp"
)

const serverName = "pyrefminer"

func main() {
	_ = godotenv.Load()

	// MCP uses stdout for JSON-RPC
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{AddSource: true})))

	cfg, configPath, err := loadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)

	mcp.RegisterTools(server, mcp.NewHandlerSet(mcp.NewDependencies(cfg, configPath)))

	slog.Info("starting MCP server",
		"name", serverName,
		"version", version.Short(),
		"config", configPath,
		"tools", []string{"detect_refactorings", "compare_functions", "list_refactoring_types"})

	// Blocks until the client disconnects
	if err := mcpserver.ServeStdio(server); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// loadServerConfig reads PYREFMINER_CONFIG when set, otherwise discovers a
// configuration file from the working directory
func loadServerConfig() (*config.Config, string, error) {
	if path := os.Getenv("PYREFMINER_CONFIG"); path != "" {
		cfg, err := config.LoadConfig(path)
		return cfg, path, err
	}

	cfg, err := config.NewTomlConfigLoader().LoadConfig(".")
	if err != nil {
		return nil, "", err
	}
	return cfg, config.FindConfigFile("."), nil
}
