package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// RefactoringUseCase orchestrates the refactoring detection workflow
type RefactoringUseCase struct {
	service      domain.RefactoringService
	formatter    domain.RefactoringFormatter
	configLoader domain.RefactoringConfigurationLoader
	output       domain.ReportWriter
}

// NewRefactoringUseCase creates a new refactoring use case
func NewRefactoringUseCase(
	service domain.RefactoringService,
	formatter domain.RefactoringFormatter,
	configLoader domain.RefactoringConfigurationLoader,
	output domain.ReportWriter,
) *RefactoringUseCase {
	return &RefactoringUseCase{
		service:      service,
		formatter:    formatter,
		configLoader: configLoader,
		output:       output,
	}
}

// Execute performs the complete detection workflow and returns the response
// that was written
func (uc *RefactoringUseCase) Execute(ctx context.Context, req domain.RefactoringRequest) (*domain.RefactoringResponse, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}
	if err := finalReq.Validate(); err != nil {
		return nil, err
	}

	response, err := uc.service.DetectRefactorings(ctx, finalReq)
	if err != nil {
		return nil, err
	}

	if err := uc.writeResponse(response, finalReq); err != nil {
		return nil, err
	}
	return response, nil
}

func (uc *RefactoringUseCase) writeResponse(response *domain.RefactoringResponse, req domain.RefactoringRequest) error {
	format := req.OutputFormat
	if format == "" {
		format = domain.OutputFormatText
	}
	writeFunc := func(w io.Writer) error {
		return uc.formatter.Write(response, format, w)
	}

	if uc.output != nil {
		return uc.output.Write(req.OutputWriter, req.OutputPath, writeFunc)
	}
	if req.OutputPath != "" {
		return domain.NewOutputError("no report writer configured for output files", nil)
	}
	if err := writeFunc(req.OutputWriter); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// validateRequest validates the detection request
func (uc *RefactoringUseCase) validateRequest(req domain.RefactoringRequest) error {
	if req.BeforePath == "" || req.AfterPath == "" {
		return fmt.Errorf("both a before and an after path are required")
	}

	if req.OutputWriter == nil && req.OutputPath == "" {
		return fmt.Errorf("output writer is required")
	}

	if req.OutputFormat != "" {
		if _, err := domain.ParseOutputFormat(string(req.OutputFormat)); err != nil {
			return err
		}
	}

	return nil
}

// loadAndMergeConfig loads configuration from file and merges with request
func (uc *RefactoringUseCase) loadAndMergeConfig(req domain.RefactoringRequest) (domain.RefactoringRequest, error) {
	if uc.configLoader == nil {
		return req, nil
	}

	var configReq *domain.RefactoringRequest
	if req.ConfigPath != "" {
		var err error
		configReq, err = uc.configLoader.LoadConfig(req.ConfigPath)
		if err != nil {
			return req, fmt.Errorf("failed to load config from %s: %w", req.ConfigPath, err)
		}
	} else {
		configReq = uc.configLoader.LoadDefaultConfig(configStartDir(req.AfterPath))
	}

	if configReq == nil {
		return req, nil
	}
	return *uc.configLoader.MergeConfig(configReq, &req), nil
}

// configStartDir is where configuration discovery starts: the after path
// itself when it is a directory, its parent otherwise
func configStartDir(afterPath string) string {
	if info, err := os.Stat(afterPath); err == nil && info.IsDir() {
		return afterPath
	}
	return filepath.Dir(afterPath)
}

// RefactoringUseCaseBuilder provides a builder pattern for creating RefactoringUseCase
type RefactoringUseCaseBuilder struct {
	service      domain.RefactoringService
	formatter    domain.RefactoringFormatter
	configLoader domain.RefactoringConfigurationLoader
	output       domain.ReportWriter
}

// NewRefactoringUseCaseBuilder creates a new builder
func NewRefactoringUseCaseBuilder() *RefactoringUseCaseBuilder {
	return &RefactoringUseCaseBuilder{}
}

// WithService sets the refactoring service
func (b *RefactoringUseCaseBuilder) WithService(service domain.RefactoringService) *RefactoringUseCaseBuilder {
	b.service = service
	return b
}

// WithFormatter sets the output formatter
func (b *RefactoringUseCaseBuilder) WithFormatter(formatter domain.RefactoringFormatter) *RefactoringUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *RefactoringUseCaseBuilder) WithConfigLoader(configLoader domain.RefactoringConfigurationLoader) *RefactoringUseCaseBuilder {
	b.configLoader = configLoader
	return b
}

// WithOutputWriter sets the report writer
func (b *RefactoringUseCaseBuilder) WithOutputWriter(output domain.ReportWriter) *RefactoringUseCaseBuilder {
	b.output = output
	return b
}

// Build creates the RefactoringUseCase with the configured dependencies.
// The config loader and report writer are optional.
func (b *RefactoringUseCaseBuilder) Build() (*RefactoringUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("refactoring service is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}

	return NewRefactoringUseCase(b.service, b.formatter, b.configLoader, b.output), nil
}
