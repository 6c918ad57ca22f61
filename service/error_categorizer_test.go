package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludo-technologies/pyrefminer/domain"
)

func TestErrorCategorizer_Categorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected domain.ErrorCategory
	}{
		{"timeout code", domain.NewTimeoutError(context.DeadlineExceeded), domain.ErrorCategoryTimeout},
		{"config code", domain.NewConfigError("bad", nil), domain.ErrorCategoryConfig},
		{"missing file code", domain.NewFileNotFoundError("a.py", nil), domain.ErrorCategoryInput},
		{"parse code", domain.NewParseError("a.py", errors.New("oops")), domain.ErrorCategoryProcessing},
		{"unsupported format code", domain.NewUnsupportedFormatError("html"), domain.ErrorCategoryOutput},
		{"wrapped code", fmt.Errorf("detect: %w", domain.NewInvalidInputError("paths", nil)), domain.ErrorCategoryInput},
		{"deadline message", errors.New("context deadline exceeded"), domain.ErrorCategoryTimeout},
		{"toml message", errors.New("toml: line 3: expected '='"), domain.ErrorCategoryConfig},
		{"permission message", errors.New("open x: permission denied"), domain.ErrorCategoryInput},
		{"syntax message", errors.New("invalid syntax near line 4"), domain.ErrorCategoryProcessing},
		{"write message", errors.New("short write"), domain.ErrorCategoryOutput},
		{"unknown", errors.New("something odd"), domain.ErrorCategoryUnknown},
	}

	categorizer := NewErrorCategorizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := categorizer.Categorize(tt.err)
			assert.Equal(t, tt.expected, got.Category)
			assert.Equal(t, tt.err, got.Original)
			assert.NotEmpty(t, categorizer.GetRecoverySuggestions(got.Category))
		})
	}

	assert.Nil(t, categorizer.Categorize(nil))
}
