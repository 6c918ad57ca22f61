package config

import (
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagTracker_Basic(t *testing.T) {
	ft := NewFlagTracker()
	assert.False(t, ft.WasSet("format"))

	ft.Set("format")
	assert.True(t, ft.WasSet("format"))
	assert.Equal(t, 1, ft.Count())

	all := ft.GetAll()
	all["details"] = true
	assert.False(t, ft.WasSet("details"), "GetAll must return a copy")
}

func TestNewFlagTrackerFromFlagSet(t *testing.T) {
	fs := pflag.NewFlagSet("detect", pflag.ContinueOnError)
	fs.String("format", "text", "")
	fs.Bool("details", false, "")
	fs.Int("parallel", 0, "")
	require.NoError(t, fs.Parse([]string{"--format", "json", "--parallel=0"}))

	ft := NewFlagTrackerFromFlagSet(fs)

	assert.True(t, ft.WasSet("format"))
	assert.True(t, ft.WasSet("parallel"), "a flag set to its default value is still explicit")
	assert.False(t, ft.WasSet("details"))
	assert.Equal(t, map[string]bool{"format": true, "parallel": true}, ft.GetAll())

	assert.Equal(t, 0, NewFlagTrackerFromFlagSet(nil).Count())
}

func TestFlagTracker_Concurrent(t *testing.T) {
	ft := NewFlagTracker()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ft.Set("format")
				_ = ft.WasSet("format")
				_ = ft.GetAll()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ft.Count())
}
