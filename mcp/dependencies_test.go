package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/internal/config"
)

func TestNewDependencies(t *testing.T) {
	deps := NewDependencies(nil, "")
	require.NotNil(t, deps.Config())
	assert.NotNil(t, deps.cache)
	assert.Empty(t, deps.ConfigPath())

	cfg := config.DefaultConfig()
	cfg.Output.ShowDetails = true
	cfg.Matching.PairTimeoutSeconds = 3

	deps = NewDependencies(cfg, "/etc/pyrefminer.toml")
	req, err := deps.BaseRequest()
	require.NoError(t, err)
	assert.True(t, req.ShowDetails)
	assert.Equal(t, "3s", req.PairTimeout.String())
	assert.Equal(t, "/etc/pyrefminer.toml", deps.ConfigPath())
}
