package service

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOutputWriter_Write(t *testing.T) {
	writeHello := func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	}

	t.Run("to writer", func(t *testing.T) {
		var out, status bytes.Buffer
		require.NoError(t, NewFileOutputWriter(&status).Write(&out, "", writeHello))
		assert.Equal(t, "hello", out.String())
		assert.Empty(t, status.String())
	})

	t.Run("to file", func(t *testing.T) {
		var out, status bytes.Buffer
		path := filepath.Join(t.TempDir(), "nested", "report.json")

		require.NoError(t, NewFileOutputWriter(&status).Write(&out, path, writeHello))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
		assert.Empty(t, out.String())
		assert.Contains(t, status.String(), "report.json")
	})

	t.Run("write failure", func(t *testing.T) {
		err := NewFileOutputWriter(io.Discard).Write(io.Discard, "", func(io.Writer) error {
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OUTPUT_ERROR")
	})
}
