package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/analyzer"
	"github.com/ludo-technologies/pyrefminer/internal/constants"
	"github.com/ludo-technologies/pyrefminer/internal/fragment"
	"github.com/ludo-technologies/pyrefminer/internal/parser"
	"github.com/ludo-technologies/pyrefminer/internal/replacement"
	"github.com/ludo-technologies/pyrefminer/internal/version"
)

const (
	sideBefore = "before"
	sideAfter  = "after"
)

// RefactoringServiceImpl implements the RefactoringService interface
type RefactoringServiceImpl struct {
	fileReader domain.FileReader
	cache      *ModelCache
	progress   domain.ProgressManager
}

// NewRefactoringService creates a new refactoring detection service.
// cache and progress may be nil.
func NewRefactoringService(fileReader domain.FileReader, cache *ModelCache, progress domain.ProgressManager) *RefactoringServiceImpl {
	if fileReader == nil {
		fileReader = NewFileReader()
	}
	if progress == nil {
		progress = NewNoopProgressManager()
	}
	return &RefactoringServiceImpl{
		fileReader: fileReader,
		cache:      cache,
		progress:   progress,
	}
}

// DetectRefactorings parses both versions and reports the refactorings
// between them
func (s *RefactoringServiceImpl) DetectRefactorings(ctx context.Context, req domain.RefactoringRequest) (*domain.RefactoringResponse, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	beforeFiles, afterFiles, err := s.collectInputs(req)
	if err != nil {
		return nil, err
	}

	response := &domain.RefactoringResponse{
		GeneratedAt: startTime.Format(time.RFC3339),
		Version:     version.Version,
		Config:      requestSettings(req),
	}
	response.Statistics.FilesBefore = len(beforeFiles)
	response.Statistics.FilesAfter = len(afterFiles)
	response.Statistics.ModulesRemoved, response.Statistics.ModulesAdded = moduleChanges(beforeFiles, afterFiles)

	before, after, err := s.loadModels(ctx, req, beforeFiles, afterFiles, response)
	if err != nil {
		return nil, err
	}

	diff := analyzer.NewModelDiff(analyzer.DiffOptions{
		MaxOperationNameDistance: req.MaxOperationNameDistance,
		PairTimeout:              req.PairTimeout,
		Parallelism:              req.Parallelism,
		DiffID:                   fmt.Sprintf("%s..%s", req.BeforePath, req.AfterPath),
	})
	result, err := diff.Diff(ctx, before, after)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewTimeoutError(ctx.Err())
		}
		return nil, domain.NewAnalysisError("failed to compare models", err)
	}

	for _, ref := range result.Refactorings {
		t := domainType(ref.Type)
		if !req.Wants(t) {
			continue
		}
		response.Refactorings = append(response.Refactorings, convertRefactoring(ref, t, req.ShowDetails))
	}

	for _, pair := range result.TimedOutPairs {
		response.TimedOutPairs = append(response.TimedOutPairs, domain.TimedOutPair{
			Before: operationInfo(pair.Before),
			After:  operationInfo(pair.After),
		})
		msg := fmt.Sprintf("matching timed out for %s -> %s", pair.Before.Key(), pair.After.Key())
		response.Warnings = append(response.Warnings, msg)
		slog.Warn("pair skipped", "before", pair.Before.Key(), "after", pair.After.Key(), "timeout", req.PairTimeout)
	}

	mapped := 0
	for _, m := range result.Mappers {
		mapped += len(m.AllMappings())
	}

	response.Statistics.OperationsCompared = result.OperationsCompared
	response.Statistics.MappedStatements = mapped
	response.Statistics.TotalRefactorings = len(response.Refactorings)
	response.Statistics.TimedOutPairs = len(response.TimedOutPairs)
	response.Statistics.ByType = response.CountByType()
	response.Statistics.DurationMs = time.Since(startTime).Milliseconds()

	slog.Debug("detection finished",
		"refactorings", response.Statistics.TotalRefactorings,
		"operations", result.OperationsCompared,
		"duration_ms", response.Statistics.DurationMs)

	return response, nil
}

// CompareOperations aligns the statements of the first function in each
// source and reports the refactorings found inside that one pair
func (s *RefactoringServiceImpl) CompareOperations(ctx context.Context, before, after string) (*domain.OperationComparison, error) {
	op1, err := firstOperation(ctx, before, "before.py")
	if err != nil {
		return nil, err
	}
	op2, err := firstOperation(ctx, after, "after.py")
	if err != nil {
		return nil, err
	}

	pairCtx, cancel := context.WithTimeout(ctx, constants.DefaultPairTimeout)
	defer cancel()

	mapper, err := analyzer.NewBodyMapper(pairCtx, op1, op2, analyzer.MapperOptions{
		Env: replacement.Env{
			AddedParameters:   missingNames(op2.ParameterNames(), op1.ParameterNames()),
			RemovedParameters: missingNames(op1.ParameterNames(), op2.ParameterNames()),
		},
	})
	if err != nil {
		return nil, err
	}

	comparison := &domain.OperationComparison{
		Before:       operationInfo(op1),
		After:        operationInfo(op2),
		Mappings:     convertMappings(mapper.AllMappings()),
		ExactMatches: mapper.ExactMatches(),
	}
	for _, f := range append(mapper.NonMappedLeavesT1(), mapper.NonMappedInnerNodesT1()...) {
		comparison.UnmappedBefore = append(comparison.UnmappedBefore, strings.TrimSpace(f.String()))
	}
	for _, f := range append(mapper.NonMappedLeavesT2(), mapper.NonMappedInnerNodesT2()...) {
		comparison.UnmappedAfter = append(comparison.UnmappedAfter, strings.TrimSpace(f.String()))
	}

	if op1.Name != op2.Name {
		comparison.Refactorings = append(comparison.Refactorings, convertRefactoring(&analyzer.Refactoring{
			Type:       analyzer.RenameMethod,
			Before:     op1.Name,
			After:      op2.Name,
			Operation1: op1,
			Operation2: op2,
		}, domain.RefactoringRenameMethod, false))
	}
	acc := analyzer.NewCandidateAccumulator()
	acc.AddMapper(mapper)
	for _, ref := range acc.Finalize() {
		comparison.Refactorings = append(comparison.Refactorings, convertRefactoring(ref, domainType(ref.Type), false))
	}

	return comparison, nil
}

// collectInputs resolves both paths to source files with shared module paths
func (s *RefactoringServiceImpl) collectInputs(req domain.RefactoringRequest) ([]SourceFile, []SourceFile, error) {
	beforeInfo, err := os.Stat(req.BeforePath)
	if err != nil {
		return nil, nil, domain.NewFileNotFoundError(req.BeforePath, err)
	}
	afterInfo, err := os.Stat(req.AfterPath)
	if err != nil {
		return nil, nil, domain.NewFileNotFoundError(req.AfterPath, err)
	}
	if beforeInfo.IsDir() != afterInfo.IsDir() {
		return nil, nil, domain.NewInvalidInputError("before and after must both be files or both be directories", nil)
	}

	// two single files pair under the after file's name
	if !beforeInfo.IsDir() {
		for _, path := range []string{req.BeforePath, req.AfterPath} {
			if !s.fileReader.IsValidPythonFile(path) {
				return nil, nil, domain.NewInvalidInputError(fmt.Sprintf("not a Python file: %s", path), nil)
			}
		}
		rel := filepath.ToSlash(filepath.Base(req.AfterPath))
		return []SourceFile{{Path: req.BeforePath, Rel: rel}}, []SourceFile{{Path: req.AfterPath, Rel: rel}}, nil
	}

	beforeFiles, err := s.collectDirectory(req, req.BeforePath)
	if err != nil {
		return nil, nil, err
	}
	afterFiles, err := s.collectDirectory(req, req.AfterPath)
	if err != nil {
		return nil, nil, err
	}
	if len(beforeFiles) == 0 && len(afterFiles) == 0 {
		return nil, nil, domain.NewInvalidInputError(
			fmt.Sprintf("no Python files found in %s or %s", req.BeforePath, req.AfterPath), nil)
	}
	return beforeFiles, afterFiles, nil
}

func (s *RefactoringServiceImpl) collectDirectory(req domain.RefactoringRequest, root string) ([]SourceFile, error) {
	paths, err := s.fileReader.CollectPythonFiles([]string{root}, req.Recursive, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	files := make([]SourceFile, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("cannot relate %s to %s", path, root), err)
		}
		files = append(files, SourceFile{Path: path, Rel: filepath.ToSlash(rel)})
	}
	return files, nil
}

// loadModels parses both sides. Unparsable files become warnings.
func (s *RefactoringServiceImpl) loadModels(ctx context.Context, req domain.RefactoringRequest,
	beforeFiles, afterFiles []SourceFile, response *domain.RefactoringResponse) ([]*fragment.Module, []*fragment.Module, error) {
	total := len(beforeFiles) + len(afterFiles)
	showProgress := !req.NoProgress && s.progress.IsInteractive()
	if showProgress {
		s.progress.Initialize(total)
		s.progress.Start()
	}

	var parsed atomic.Int64
	onParsed := func() {
		n := parsed.Add(1)
		if showProgress {
			s.progress.Update(int(n), total)
		}
	}

	loader := NewModelLoader(s.fileReader, s.cache, req.Parallelism)
	before, beforeFailures, err := loader.Load(ctx, sideBefore, beforeFiles, onParsed)
	if err == nil {
		var after []*fragment.Module
		var afterFailures []ParseFailure
		after, afterFailures, err = loader.Load(ctx, sideAfter, afterFiles, onParsed)
		if err == nil {
			if showProgress {
				s.progress.Complete(true)
			}
			for _, failure := range append(beforeFailures, afterFailures...) {
				response.Warnings = append(response.Warnings, fmt.Sprintf("skipped %s: %v", failure.File.Path, failure.Err))
				slog.Warn("file skipped", "path", failure.File.Path, "error", failure.Err)
			}
			return before, after, nil
		}
	}

	if showProgress {
		s.progress.Complete(false)
	}
	return nil, nil, err
}

func firstOperation(ctx context.Context, source, path string) (*fragment.Operation, error) {
	module, err := parser.ParseModule(ctx, []byte(source), path)
	if err != nil {
		return nil, domain.NewParseError(path, err)
	}
	ops := module.AllOperations()
	if len(ops) == 0 {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("no function definition found in %s source", trimExt(path)), nil)
	}
	return ops[0], nil
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}

var refactoringTypes = map[analyzer.RefactoringType]domain.RefactoringType{
	analyzer.RenameMethod:        domain.RefactoringRenameMethod,
	analyzer.MoveOperation:       domain.RefactoringMoveMethod,
	analyzer.ExtractOperation:    domain.RefactoringExtractMethod,
	analyzer.InlineOperation:     domain.RefactoringInlineMethod,
	analyzer.RenameVariable:      domain.RefactoringRenameVariable,
	analyzer.RenameParameter:     domain.RefactoringRenameParameter,
	analyzer.ChangeVariableType:  domain.RefactoringChangeVariableType,
	analyzer.ChangeParameterType: domain.RefactoringChangeParameterType,
	analyzer.ChangeReturnType:    domain.RefactoringChangeReturnType,
	analyzer.MergeVariable:       domain.RefactoringMergeVariable,
	analyzer.SplitVariable:       domain.RefactoringSplitVariable,
	analyzer.MergeParameter:      domain.RefactoringMergeParameter,
	analyzer.SplitParameter:      domain.RefactoringSplitParameter,
	analyzer.RenameInvocation:    domain.RefactoringRenameInvocation,
	analyzer.RenameAttribute:     domain.RefactoringRenameAttribute,
}

func domainType(t analyzer.RefactoringType) domain.RefactoringType {
	return refactoringTypes[t]
}

func convertRefactoring(ref *analyzer.Refactoring, t domain.RefactoringType, withMappings bool) domain.Refactoring {
	out := domain.Refactoring{
		Type:        t,
		Description: ref.String(),
		Before:      ref.Before,
		After:       ref.After,
	}
	if ref.Operation1 != nil {
		info := operationInfo(ref.Operation1)
		out.Operation1 = &info
	}
	if ref.Operation2 != nil {
		info := operationInfo(ref.Operation2)
		out.Operation2 = &info
	}
	if withMappings {
		out.Mappings = convertMappings(ref.Mappings)
	}
	return out
}

func operationInfo(op *fragment.Operation) domain.OperationInfo {
	return domain.OperationInfo{
		Name:      op.Name,
		ClassName: op.ClassName,
		Module:    op.ModulePath,
		Signature: op.String(),
		Location:  sourceLocation(op.Location, op.ModulePath),
	}
}

func sourceLocation(loc fragment.Location, fallbackFile string) domain.SourceLocation {
	file := loc.File
	if file == "" {
		file = fallbackFile
	}
	return domain.SourceLocation{File: file, StartLine: loc.StartLine, EndLine: loc.EndLine}
}

func convertMappings(mappings []*analyzer.Mapping) []domain.StatementMapping {
	out := make([]domain.StatementMapping, 0, len(mappings))
	for _, m := range mappings {
		sm := domain.StatementMapping{
			Before:         strings.TrimSpace(m.Fragment1.String()),
			After:          strings.TrimSpace(m.Fragment2.String()),
			BeforeLocation: sourceLocation(m.Fragment1.Location, ""),
			AfterLocation:  sourceLocation(m.Fragment2.Location, ""),
			Exact:          m.IsExact(),
		}
		if m.Replacements != nil {
			for _, r := range m.Replacements.Items() {
				sm.Replacements = append(sm.Replacements, domain.ReplacementInfo{
					Type:   r.Kind.String(),
					Before: r.Before,
					After:  r.After,
				})
			}
		}
		out = append(out, sm)
	}
	return out
}

// moduleChanges counts module paths present on only one side
func moduleChanges(before, after []SourceFile) (removed, added int) {
	inBefore := make(map[string]bool, len(before))
	for _, f := range before {
		inBefore[f.Rel] = true
	}
	inAfter := make(map[string]bool, len(after))
	for _, f := range after {
		inAfter[f.Rel] = true
		if !inBefore[f.Rel] {
			added++
		}
	}
	for _, f := range before {
		if !inAfter[f.Rel] {
			removed++
		}
	}
	return removed, added
}

func missingNames(from, in []string) []string {
	present := make(map[string]bool, len(in))
	for _, name := range in {
		present[name] = true
	}
	var missing []string
	for _, name := range from {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func requestSettings(req domain.RefactoringRequest) map[string]interface{} {
	types := make([]string, 0, len(req.RefactoringTypes))
	for _, t := range req.RefactoringTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return map[string]interface{}{
		"before":                      req.BeforePath,
		"after":                       req.AfterPath,
		"pair_timeout_seconds":        int(req.PairTimeout / time.Second),
		"max_operation_name_distance": req.MaxOperationNameDistance,
		"parallelism":                 req.Parallelism,
		"refactoring_types":           types,
	}
}

var _ domain.RefactoringService = (*RefactoringServiceImpl)(nil)
