package specfile_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/specfile"
	"github.com/aretw0/specfile/internal/testutils"
	"github.com/aretw0/specfile/pkg/adapters/file"
	"github.com/aretw0/specfile/pkg/adapters/jsonl"
	"github.com/aretw0/specfile/pkg/adapters/memory"
	"github.com/aretw0/specfile/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ err error }

func (f failingSource) Next(context.Context) (domain.Document, error) {
	return domain.Document{}, f.err
}

func runDocs(r *testutils.Run) []domain.Document {
	return []domain.Document{
		r.Start(nil),
		r.Primary(map[string]string{"det": "PV:DET"}),
		r.Event(1, map[string]any{"det": json.Number("4")}),
		r.Stop(domain.ExitSuccess, ""),
	}
}

func TestExport_ToDirectory(t *testing.T) {
	dir := t.TempDir()
	first, second := testutils.NewRun(), testutils.NewRun()
	docs := append(runDocs(first), runDocs(second)...)

	artifacts, err := specfile.Export(context.Background(),
		memory.NewSource(docs...),
		file.New(dir),
		specfile.WithLocation(time.UTC),
	)
	require.NoError(t, err)

	paths := artifacts[domain.LabelStreamData]
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, first.StartUID+".spec"), paths[0])
	assert.Equal(t, filepath.Join(dir, second.StartUID+".spec"), paths[1])

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "#F "+second.StartUID+".spec\n"))
	assert.True(t, strings.HasSuffix(string(data), "\n1  1455890496 0.1 4\n"))
}

func TestExport_ClosesManagerOnError(t *testing.T) {
	m := memory.New()
	r := testutils.NewRun()

	artifacts, err := specfile.Export(context.Background(),
		memory.NewSource(r.Start(nil), r.Event(1, map[string]any{"det": 1})),
		m,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoPrimaryDescriptor)
	assert.Contains(t, err.Error(), "event document")
	assert.Len(t, artifacts[domain.LabelStreamData], 1)

	_, err = m.Open(context.Background(), domain.LabelStreamData, "late.spec")
	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestExport_SourceError(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := specfile.Export(context.Background(), failingSource{err: boom}, memory.New())
	assert.ErrorIs(t, err, boom)
}

func TestExport_MalformedInput(t *testing.T) {
	_, err := specfile.Export(context.Background(),
		jsonl.NewSource(strings.NewReader(`["start", {"uid": "u1", "time": 1}]`+"\nnot json\n")),
		memory.New(),
	)
	assert.ErrorIs(t, err, jsonl.ErrMalformed)
	assert.Contains(t, err.Error(), "line 2")
}

func TestExport_InvalidPrefix(t *testing.T) {
	m := memory.New()
	_, err := specfile.Export(context.Background(), memory.NewSource(), m, specfile.WithFilePrefix("{{"))
	require.Error(t, err)

	_, err = m.Open(context.Background(), domain.LabelStreamData, "x.spec")
	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestExport_NilManager(t *testing.T) {
	_, err := specfile.Export(context.Background(), memory.NewSource(), nil)
	assert.Error(t, err)
}

func TestSerializer_Options(t *testing.T) {
	m := memory.New()
	var stops int
	s, err := specfile.NewSerializer(m,
		specfile.WithFilePrefix("scan_{{.start.scan_id}}"),
		specfile.WithFlush(true),
		specfile.WithLenient(true),
		specfile.WithLocation(time.UTC),
		specfile.WithLogger(nil),
		specfile.WithLifecycleHooks(domain.LifecycleHooks{
			OnRunStop: func(context.Context, *domain.RunEvent) { stops++ },
		}),
	)
	require.NoError(t, err)

	r := testutils.NewRun()
	for _, doc := range runDocs(r) {
		require.NoError(t, s.Handle(context.Background(), doc))
	}
	require.NoError(t, s.Close())

	assert.Equal(t, 1, stops)
	assert.Equal(t, []string{"scan_1.spec"}, s.Artifacts()[domain.LabelStreamData])
	assert.Contains(t, m.Contents("scan_1.spec"), "#S 1 ct seq_num 0.1\n")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(specfile.Version))
}
