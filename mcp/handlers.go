package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/service"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "")
	}
	return &HandlerSet{deps: deps}
}

// HandleDetectRefactorings handles the detect_refactorings tool
func (h *HandlerSet) HandleDetectRefactorings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	beforePath, ok := args["before_path"].(string)
	if !ok || beforePath == "" {
		return mcp.NewToolResultError("before_path parameter is required and must be a string"), nil
	}
	afterPath, ok := args["after_path"].(string)
	if !ok || afterPath == "" {
		return mcp.NewToolResultError("after_path parameter is required and must be a string"), nil
	}

	for _, p := range []string{beforePath, afterPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", p)), nil
		}
	}

	req, err := h.deps.BaseRequest()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid configuration: %v", err)), nil
	}
	req.BeforePath = beforePath
	req.AfterPath = afterPath
	req.NoProgress = true
	req.OutputFormat = domain.OutputFormatJSON

	if rawTypes, ok := args["types"].([]interface{}); ok {
		names := make([]string, 0, len(rawTypes))
		for _, t := range rawTypes {
			if str, ok := t.(string); ok {
				names = append(names, str)
			}
		}
		types, err := domain.ParseRefactoringTypes(names)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.RefactoringTypes = types
	}
	if secs, ok := args["timeout_seconds"].(float64); ok {
		req.PairTimeout = time.Duration(secs * float64(time.Second))
	}
	if sd, ok := args["show_details"].(bool); ok {
		req.ShowDetails = sd
	}
	if r, ok := args["recursive"].(bool); ok {
		req.Recursive = r
	}

	outputMode := "summary"
	if om, ok := args["output_mode"].(string); ok {
		outputMode = om
	}

	useCase, err := h.deps.BuildRefactoringUseCase()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create detector: %v", err)), nil
	}

	var buf bytes.Buffer
	req.OutputWriter = &buf
	response, err := useCase.Execute(ctx, *req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detection failed: %v", err)), nil
	}

	if outputMode == "full" {
		return mcp.NewToolResultText(buf.String()), nil
	}

	jsonData, err := json.Marshal(formatDetectionSummary(response))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// HandleCompareFunctions handles the compare_functions tool
func (h *HandlerSet) HandleCompareFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	before, ok := args["before_source"].(string)
	if !ok {
		return mcp.NewToolResultError("before_source parameter is required and must be a string"), nil
	}
	after, ok := args["after_source"].(string)
	if !ok {
		return mcp.NewToolResultError("after_source parameter is required and must be a string"), nil
	}

	cmp, err := h.deps.Service().CompareOperations(ctx, before, after)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := service.NewRefactoringFormatter().WriteComparison(cmp, domain.OutputFormatJSON, &buf); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// HandleListRefactoringTypes handles the list_refactoring_types tool
func (h *HandlerSet) HandleListRefactoringTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	types := make([]map[string]string, 0)
	for _, t := range domain.AllRefactoringTypes() {
		types = append(types, map[string]string{
			"type": string(t),
			"name": service.DisplayName(t),
		})
	}

	jsonData, err := json.Marshal(map[string]interface{}{"types": types})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func formatDetectionSummary(result *domain.RefactoringResponse) map[string]interface{} {
	type item struct {
		Type        domain.RefactoringType `json:"type"`
		Description string                 `json:"description"`
	}

	items := make([]item, 0, len(result.Refactorings))
	for _, ref := range result.Refactorings {
		items = append(items, item{Type: ref.Type, Description: ref.Description})
	}

	summary := map[string]interface{}{
		"refactorings": items,
		"summary": map[string]interface{}{
			"total_refactorings":  len(result.Refactorings),
			"by_type":             result.Statistics.ByType,
			"files_before":        result.Statistics.FilesBefore,
			"files_after":         result.Statistics.FilesAfter,
			"operations_compared": result.Statistics.OperationsCompared,
			"timed_out_pairs":     len(result.TimedOutPairs),
		},
	}
	if len(result.Warnings) > 0 {
		summary["warnings"] = result.Warnings
	}
	return summary
}
