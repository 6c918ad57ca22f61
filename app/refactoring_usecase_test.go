package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
)

type mockRefactoringService struct {
	mock.Mock
}

func (m *mockRefactoringService) DetectRefactorings(ctx context.Context, req domain.RefactoringRequest) (*domain.RefactoringResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefactoringResponse), args.Error(1)
}

func (m *mockRefactoringService) CompareOperations(ctx context.Context, before, after string) (*domain.OperationComparison, error) {
	args := m.Called(ctx, before, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OperationComparison), args.Error(1)
}

type mockRefactoringFormatter struct {
	mock.Mock
}

func (m *mockRefactoringFormatter) Format(response *domain.RefactoringResponse, format domain.OutputFormat) (string, error) {
	args := m.Called(response, format)
	return args.String(0), args.Error(1)
}

func (m *mockRefactoringFormatter) Write(response *domain.RefactoringResponse, format domain.OutputFormat, writer io.Writer) error {
	args := m.Called(response, format, writer)
	if args.Error(0) == nil {
		_, _ = io.WriteString(writer, "report")
	}
	return args.Error(0)
}

type mockConfigurationLoader struct {
	mock.Mock
}

func (m *mockConfigurationLoader) LoadConfig(path string) (*domain.RefactoringRequest, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefactoringRequest), args.Error(1)
}

func (m *mockConfigurationLoader) LoadDefaultConfig(startDir string) *domain.RefactoringRequest {
	args := m.Called(startDir)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.RefactoringRequest)
}

func (m *mockConfigurationLoader) MergeConfig(base *domain.RefactoringRequest, override *domain.RefactoringRequest) *domain.RefactoringRequest {
	args := m.Called(base, override)
	return args.Get(0).(*domain.RefactoringRequest)
}

type mockReportWriter struct {
	mock.Mock
}

func (m *mockReportWriter) Write(writer io.Writer, outputPath string, writeFunc func(io.Writer) error) error {
	args := m.Called(writer, outputPath)
	if err := args.Error(0); err != nil {
		return err
	}
	return writeFunc(writer)
}

func createValidRefactoringRequest(out io.Writer) domain.RefactoringRequest {
	return domain.RefactoringRequest{
		BeforePath:               "/repo/v1",
		AfterPath:                "/repo/v2",
		OutputFormat:             domain.OutputFormatText,
		OutputWriter:             out,
		PairTimeout:              15 * time.Second,
		MaxOperationNameDistance: 0.4,
		Recursive:                true,
		IncludePatterns:          []string{"**/*.py"},
	}
}

func createMockRefactoringResponse() *domain.RefactoringResponse {
	return &domain.RefactoringResponse{
		Refactorings: []domain.Refactoring{
			{Type: domain.RefactoringRenameMethod, Before: "a.py::f", After: "a.py::g"},
		},
		Statistics: domain.RefactoringStatistics{TotalRefactorings: 1},
	}
}

func TestRefactoringUseCase_Execute(t *testing.T) {
	var out bytes.Buffer
	service := &mockRefactoringService{}
	formatter := &mockRefactoringFormatter{}
	req := createValidRefactoringRequest(&out)
	response := createMockRefactoringResponse()

	service.On("DetectRefactorings", mock.Anything, req).Return(response, nil)
	formatter.On("Write", response, domain.OutputFormatText, &out).Return(nil)

	uc, err := NewRefactoringUseCaseBuilder().WithService(service).WithFormatter(formatter).Build()
	require.NoError(t, err)

	got, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, response, got)
	assert.Equal(t, "report", out.String())

	service.AssertExpectations(t)
	formatter.AssertExpectations(t)
}

func TestRefactoringUseCase_ExecuteMergesConfig(t *testing.T) {
	var out bytes.Buffer
	service := &mockRefactoringService{}
	formatter := &mockRefactoringFormatter{}
	loader := &mockConfigurationLoader{}
	writer := &mockReportWriter{}

	req := createValidRefactoringRequest(&out)
	req.AfterPath = "/repo/v2/mod.py"
	fromConfig := &domain.RefactoringRequest{OutputFormat: domain.OutputFormatJSON}
	merged := req
	merged.OutputFormat = domain.OutputFormatJSON
	merged.OutputPath = "report.json"
	response := createMockRefactoringResponse()

	loader.On("LoadDefaultConfig", "/repo/v2").Return(fromConfig)
	loader.On("MergeConfig", fromConfig, mock.AnythingOfType("*domain.RefactoringRequest")).Return(&merged)
	service.On("DetectRefactorings", mock.Anything, merged).Return(response, nil)
	writer.On("Write", &out, "report.json").Return(nil)
	formatter.On("Write", response, domain.OutputFormatJSON, &out).Return(nil)

	uc, err := NewRefactoringUseCaseBuilder().
		WithService(service).
		WithFormatter(formatter).
		WithConfigLoader(loader).
		WithOutputWriter(writer).
		Build()
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), req)
	require.NoError(t, err)

	loader.AssertExpectations(t)
	service.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestRefactoringUseCase_ExplicitConfigPathError(t *testing.T) {
	loader := &mockConfigurationLoader{}
	req := createValidRefactoringRequest(io.Discard)
	req.ConfigPath = "broken.toml"
	loader.On("LoadConfig", "broken.toml").Return(nil, errors.New("toml: bad"))

	uc := NewRefactoringUseCase(&mockRefactoringService{}, &mockRefactoringFormatter{}, loader, nil)
	_, err := uc.Execute(context.Background(), req)
	require.Error(t, err)

	var de domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeConfigError, de.Code)
}

func TestRefactoringUseCase_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(req *domain.RefactoringRequest)
	}{
		{"missing before", func(req *domain.RefactoringRequest) { req.BeforePath = "" }},
		{"missing after", func(req *domain.RefactoringRequest) { req.AfterPath = "" }},
		{"no output", func(req *domain.RefactoringRequest) { req.OutputWriter = nil }},
		{"bad format", func(req *domain.RefactoringRequest) { req.OutputFormat = "html" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockRefactoringService{}
			uc := NewRefactoringUseCase(service, &mockRefactoringFormatter{}, nil, nil)

			req := createValidRefactoringRequest(io.Discard)
			tt.modify(&req)

			_, err := uc.Execute(context.Background(), req)
			require.Error(t, err)
			service.AssertNotCalled(t, "DetectRefactorings", mock.Anything, mock.Anything)
		})
	}
}

func TestRefactoringUseCase_ServiceError(t *testing.T) {
	service := &mockRefactoringService{}
	formatter := &mockRefactoringFormatter{}
	req := createValidRefactoringRequest(io.Discard)
	service.On("DetectRefactorings", mock.Anything, req).
		Return(nil, domain.NewTimeoutError(context.DeadlineExceeded))

	uc := NewRefactoringUseCase(service, formatter, nil, nil)
	_, err := uc.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	formatter.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefactoringUseCase_OutputPathNeedsWriter(t *testing.T) {
	service := &mockRefactoringService{}
	req := createValidRefactoringRequest(io.Discard)
	req.OutputPath = "out.json"
	service.On("DetectRefactorings", mock.Anything, req).Return(createMockRefactoringResponse(), nil)

	uc := NewRefactoringUseCase(service, &mockRefactoringFormatter{}, nil, nil)
	_, err := uc.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report writer")
}

func TestRefactoringUseCaseBuilder_RequiresDependencies(t *testing.T) {
	_, err := NewRefactoringUseCaseBuilder().Build()
	assert.Error(t, err)

	_, err = NewRefactoringUseCaseBuilder().WithService(&mockRefactoringService{}).Build()
	assert.Error(t, err)
}
