package mcp

import (
	"log/slog"

	"github.com/ludo-technologies/pyrefminer/app"
	"github.com/ludo-technologies/pyrefminer/domain"
	"github.com/ludo-technologies/pyrefminer/internal/config"
	"github.com/ludo-technologies/pyrefminer/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	fileReader domain.FileReader
	cache      *service.ModelCache
	config     *config.Config
	configPath string
}

// NewDependencies constructs the dependency set with sane defaults. Parsed
// models are cached across tool calls.
func NewDependencies(cfg *config.Config, configPath string) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	cache, err := service.NewModelCache(service.DefaultModelCacheSize)
	if err != nil {
		slog.Warn("model cache disabled", "error", err)
		cache = nil
	}

	return &Dependencies{
		fileReader: service.NewFileReader(),
		cache:      cache,
		config:     cfg,
		configPath: configPath,
	}
}

// Config exposes the loaded configuration snapshot.
func (d *Dependencies) Config() *config.Config {
	return d.config
}

// ConfigPath returns the configured config file path (may be empty).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// Service returns a refactoring service sharing the model cache.
func (d *Dependencies) Service() *service.RefactoringServiceImpl {
	return service.NewRefactoringService(d.fileReader, d.cache, service.NewNoopProgressManager())
}

// BuildRefactoringUseCase assembles a use case that writes JSON reports.
// Configuration is applied by BaseRequest, so no loader is wired.
func (d *Dependencies) BuildRefactoringUseCase() (*app.RefactoringUseCase, error) {
	return app.NewRefactoringUseCaseBuilder().
		WithService(d.Service()).
		WithFormatter(service.NewRefactoringFormatter()).
		Build()
}

// BaseRequest returns a detection request carrying the configured defaults.
func (d *Dependencies) BaseRequest() (*domain.RefactoringRequest, error) {
	return service.ConfigToRequest(d.config)
}
