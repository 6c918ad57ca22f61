package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// RegisterTools registers all pyrefminer MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	typeNames := make([]string, 0)
	for _, t := range domain.AllRefactoringTypes() {
		typeNames = append(typeNames, string(t))
	}

	// Tool 1: detect_refactorings - compare two versions of a project
	s.AddTool(mcp.NewTool("detect_refactorings",
		mcp.WithDescription("Detect refactorings (renames, moves, extractions, inlinings, type changes) between two versions of Python code"),
		mcp.WithString("before_path",
			mcp.Required(),
			mcp.Description("Path to the old version (file or directory)")),
		mcp.WithString("after_path",
			mcp.Required(),
			mcp.Description("Path to the new version (same kind as before_path)")),
		mcp.WithArray("types",
			mcp.WithStringEnumItems(typeNames),
			mcp.Description("Refactoring types to report. Default: all types")),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Matching budget per function pair in seconds, 0 disables (default: 15)")),
		mcp.WithBoolean("show_details",
			mcp.Description("Include statement mappings in full output (default: false)")),
		mcp.WithBoolean("recursive",
			mcp.Description("Recursively walk directories (default: true)")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "full"),
			mcp.Description("summary lists descriptions and counts; full returns the complete report")),
	), h.HandleDetectRefactorings)

	// Tool 2: compare_functions - align the statements of two functions
	s.AddTool(mcp.NewTool("compare_functions",
		mcp.WithDescription("Map the statements of two versions of a function and report the replacements and refactorings between them"),
		mcp.WithString("before_source",
			mcp.Required(),
			mcp.Description("Python source whose first function is the old version")),
		mcp.WithString("after_source",
			mcp.Required(),
			mcp.Description("Python source whose first function is the new version")),
	), h.HandleCompareFunctions)

	// Tool 3: list_refactoring_types
	s.AddTool(mcp.NewTool("list_refactoring_types",
		mcp.WithDescription("List the refactoring types the detector reports"),
	), h.HandleListRefactoringTypes)
}
