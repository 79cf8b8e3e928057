package ports

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ManagerFactory returns a fresh Manager over a backend that persists between calls
// within one test, so a second manager sees what the first one wrote.
type ManagerFactory func(t *testing.T) Manager

// ArtifactReader returns the full content of a named artifact from the backend.
type ArtifactReader func(t *testing.T, name string) string

// RunManagerContract runs a suite of tests to verify that a Manager implementation
// adheres to the defined interface contract.
func RunManagerContract(t *testing.T, newManager ManagerFactory, read ArtifactReader) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")

	t.Run("Open New Artifact", func(t *testing.T) {
		name := "contract-new-" + suffix + domain.FileExtension
		m := newManager(t)
		defer m.Close()

		s, err := m.Open(ctx, domain.LabelStreamData, name)
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.Offset(), "new artifact should be empty")

		n, err := io.WriteString(s, "#F header")
		require.NoError(t, err)
		assert.Equal(t, 9, n)
		assert.Equal(t, int64(9), s.Offset())

		require.NoError(t, s.Flush())
		assert.Equal(t, "#F header", read(t, name))
	})

	t.Run("Reopen Returns Same Stream", func(t *testing.T) {
		name := "contract-same-" + suffix + domain.FileExtension
		m := newManager(t)
		defer m.Close()

		s1, err := m.Open(ctx, domain.LabelStreamData, name)
		require.NoError(t, err)
		_, err = io.WriteString(s1, "abc")
		require.NoError(t, err)

		s2, err := m.Open(ctx, domain.LabelStreamData, name)
		require.NoError(t, err)
		assert.True(t, s1 == s2, "reopening an open name should return the same stream")
		assert.Equal(t, int64(3), s2.Offset())
		assert.Len(t, m.Artifacts()[domain.LabelStreamData], 1)
	})

	t.Run("Append Across Managers", func(t *testing.T) {
		name := "contract-append-" + suffix + domain.FileExtension

		first := newManager(t)
		s, err := first.Open(ctx, domain.LabelStreamData, name)
		require.NoError(t, err)
		_, err = io.WriteString(s, "run 1\n")
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second := newManager(t)
		s, err = second.Open(ctx, domain.LabelStreamData, name)
		require.NoError(t, err)
		assert.Equal(t, int64(6), s.Offset(), "existing content should count toward the offset")
		_, err = io.WriteString(s, "run 2\n")
		require.NoError(t, err)
		require.NoError(t, second.Close())

		assert.Equal(t, "run 1\nrun 2\n", read(t, name))
	})

	t.Run("Artifacts By Label", func(t *testing.T) {
		a := "contract-label-a-" + suffix + domain.FileExtension
		b := "contract-label-b-" + suffix + domain.FileExtension
		m := newManager(t)
		defer m.Close()

		_, err := m.Open(ctx, domain.LabelStreamData, a)
		require.NoError(t, err)
		_, err = m.Open(ctx, "other", b)
		require.NoError(t, err)

		artifacts := m.Artifacts()
		require.Len(t, artifacts[domain.LabelStreamData], 1)
		require.Len(t, artifacts["other"], 1)
		assert.True(t, strings.HasSuffix(artifacts[domain.LabelStreamData][0], a))
		assert.True(t, strings.HasSuffix(artifacts["other"][0], b))

		// The returned map must not alias internal state.
		artifacts["other"] = nil
		assert.Len(t, m.Artifacts()["other"], 1)
	})

	t.Run("Open After Close", func(t *testing.T) {
		m := newManager(t)
		require.NoError(t, m.Close())

		_, err := m.Open(ctx, domain.LabelStreamData, "late-"+suffix+domain.FileExtension)
		assert.ErrorIs(t, err, domain.ErrClosed)
	})

	t.Run("Invalid Name", func(t *testing.T) {
		m := newManager(t)
		defer m.Close()

		_, err := m.Open(ctx, domain.LabelStreamData, "")
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})
}

// RunDocumentSourceContract drains src and checks it yields want, then io.EOF.
func RunDocumentSourceContract(t *testing.T, src DocumentSource, want []domain.Document) {
	t.Helper()
	ctx := context.Background()

	for i, w := range want {
		got, err := src.Next(ctx)
		require.NoError(t, err, "document %d", i)
		assert.Equal(t, w.Name, got.Name, "document %d name", i)
		assert.Equal(t, w.Body, got.Body, "document %d body", i)
	}

	_, err := src.Next(ctx)
	assert.True(t, errors.Is(err, io.EOF), "drained source should return io.EOF, got %v", err)

	_, err = src.Next(ctx)
	assert.True(t, errors.Is(err, io.EOF), "io.EOF should be sticky, got %v", err)
}
