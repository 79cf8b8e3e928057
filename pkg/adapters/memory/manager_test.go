package memory_test

import (
	"context"
	"io"
	"testing"

	"github.com/aretw0/specfile/pkg/adapters/memory"
	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManager_Contract(t *testing.T) {
	buffers := memory.NewBuffers()

	ports.RunManagerContract(t,
		func(t *testing.T) ports.Manager { return memory.NewWithBuffers(buffers) },
		func(t *testing.T, name string) string { return buffers.Contents(name) },
	)
}

func TestMemoryManager_Contents(t *testing.T) {
	m := memory.New()
	s, err := m.Open(context.Background(), domain.LabelStreamData, "u1.spec")
	require.NoError(t, err)

	_, err = io.WriteString(s, "#F u1.spec")
	require.NoError(t, err)

	assert.Equal(t, "#F u1.spec", m.Contents("u1.spec"))
	assert.Equal(t, []string{"u1.spec"}, m.Buffers().Names())
	assert.Empty(t, m.Contents("missing.spec"))

	// Buffers outlive the manager.
	require.NoError(t, m.Close())
	assert.Equal(t, "#F u1.spec", m.Contents("u1.spec"))
}

func TestMemorySource_Contract(t *testing.T) {
	docs := []domain.Document{
		{Name: domain.DocStart, Body: map[string]any{"uid": "u1"}},
		{Name: domain.DocStop, Body: map[string]any{"exit_status": "success"}},
	}
	ports.RunDocumentSourceContract(t, memory.NewSource(docs...), docs)
}

func TestMemorySource_Empty(t *testing.T) {
	ports.RunDocumentSourceContract(t, memory.NewSource(), nil)
}

func TestMemorySource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.NewSource(domain.Document{Name: domain.DocStart}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
