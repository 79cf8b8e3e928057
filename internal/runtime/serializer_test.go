package runtime_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/specfile/internal/runtime"
	"github.com/aretw0/specfile/internal/testutils"
	"github.com/aretw0/specfile/pkg/adapters/file"
	"github.com/aretw0/specfile/pkg/adapters/memory"
	"github.com/aretw0/specfile/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readable = "Fri Feb 19 14:01:35 2016"

func newSerializer(t *testing.T, cfg runtime.Config) (*runtime.Serializer, *memory.Manager) {
	t.Helper()
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	m := memory.New()
	s, err := runtime.New(m, cfg)
	require.NoError(t, err)
	return s, m
}

func handleAll(t *testing.T, s *runtime.Serializer, docs ...domain.Document) {
	t.Helper()
	for i, doc := range docs {
		require.NoError(t, s.Handle(context.Background(), doc), "document %d (%s)", i, doc.Name)
	}
}

func countRun(r *testutils.Run, stop domain.Document) []domain.Document {
	return []domain.Document{
		r.Start(nil),
		r.Baseline(map[string]string{"tth": "PV:TTH", "chi": "PV:CHI"}),
		r.Primary(map[string]string{"det": "PV:DET"}),
		r.BaselineReading(map[string]any{"tth": json.Number("2.5"), "chi": json.Number("90")}),
		r.Event(1, map[string]any{"det": json.Number("10")}),
		r.Event(2, map[string]any{"det": json.Number("12")}),
		stop,
	}
}

func fileHeader(uid string) string {
	return "#F " + uid + ".spec\n" +
		"#E 1455890495\n" +
		"#D " + readable + "\n" +
		"#C xf23  User = xf23\n" +
		"#O0 PV:CHI  PV:TTH\n" +
		"#o0 chi tth"
}

const countScanHeader = "\n\n#S 1 ct seq_num 0.1\n" +
	"#D " + readable + "\n" +
	"#T 0.1  (Seconds)\n" +
	"#P0 90 2.5\n" +
	"#N 4\n" +
	"#L seq_num  Epoch  Seconds  det"

const countRows = "\n1  1455890496 0.1 10" +
	"\n2  1455890497 0.1 12"

// runEnd terminates every stopped run that wrote a scan.
const runEnd = "\n"

func TestSerializer_CountRun(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	handleAll(t, s, countRun(r, r.Stop(domain.ExitSuccess, ""))...)

	name := r.StartUID + domain.FileExtension
	assert.Equal(t, fileHeader(r.StartUID)+countScanHeader+countRows+runEnd, m.Contents(name))
	assert.Equal(t, map[string][]string{domain.LabelStreamData: {name}}, s.Artifacts())
}

func TestSerializer_MotorScan(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	handleAll(t, s,
		r.ScanStart("th", -1, 1, 3),
		r.Primary(map[string]string{"th": "PV:TH", "det": "PV:DET"}),
		r.Event(1, map[string]any{"th": json.Number("-1.0"), "det": 5}),
		r.Event(2, map[string]any{"th": json.Number("0.0"), "det": 7}),
		r.Stop(domain.ExitSuccess, ""),
	)

	want := "#F " + r.StartUID + ".spec\n#E 1455890495\n#D " + readable + "\n#C xf23  User = xf23\n#O0 \n#o0 " +
		"\n\n#S 1 ascan th -1 1 3 0.1\n" +
		"#D " + readable + "\n" +
		"#T 0.1  (Seconds)\n" +
		"#P0 \n" +
		"#N 4\n" +
		"#L th  Epoch  Seconds  det" +
		"\n-1.0  1455890496 0.1 5" +
		"\n0.0  1455890497 0.1 7" +
		runEnd
	assert.Equal(t, want, m.Contents(r.StartUID+domain.FileExtension))
}

func TestSerializer_AbortedRun(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	handleAll(t, s, countRun(r, r.Stop("abort", ""))...)

	assert.Equal(t,
		fileHeader(r.StartUID)+countScanHeader+countRows+"\n#C Run exited with status: abort. Reason: No reason recorded."+runEnd,
		m.Contents(r.StartUID+domain.FileExtension))
}

func TestSerializer_FailedRunWithoutRows(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	handleAll(t, s,
		r.Start(nil),
		r.Primary(map[string]string{"det": "PV:DET"}),
		r.Stop("abort", "beam dump"),
	)

	want := "#F " + r.StartUID + ".spec\n#E 1455890495\n#D " + readable + "\n#C xf23  User = xf23\n#O0 \n#o0 " +
		"\n\n#S 1 ct seq_num 0.1\n#D " + readable + "\n#T 0.1  (Seconds)\n#P0 \n#N 4\n#L seq_num  Epoch  Seconds  det" +
		"\n#C Run exited with status: abort. Reason: beam dump" +
		runEnd
	assert.Equal(t, want, m.Contents(r.StartUID+domain.FileExtension))
	assert.Len(t, s.Artifacts()[domain.LabelStreamData], 1)
}

func TestSerializer_FailedRunBeforeDescriptors(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	handleAll(t, s, r.Start(nil), r.Stop("fail", ""))

	content := m.Contents(r.StartUID + domain.FileExtension)
	assert.Contains(t, content, "\n#N 3\n#L seq_num  Epoch  Seconds  \n")
	assert.True(t, strings.HasSuffix(content, "\n#C Run exited with status: fail. Reason: No reason recorded.\n"))
}

func TestSerializer_SucceededRunWithoutRows(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	handleAll(t, s,
		r.Start(nil),
		r.Primary(map[string]string{"det": "PV:DET"}),
		r.Stop(domain.ExitSuccess, ""),
	)

	assert.Empty(t, m.Contents(r.StartUID+domain.FileExtension))
}

func TestSerializer_AppendsRunsToSharedFile(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{FilePrefix: "shared"})
	first := testutils.NewRun()
	second := testutils.NewRun()

	handleAll(t, s, countRun(first, first.Stop(domain.ExitSuccess, ""))...)
	handleAll(t, s, countRun(second, second.Stop(domain.ExitSuccess, ""))...)

	header := "#F shared.spec\n#E 1455890495\n#D " + readable + "\n#C xf23  User = xf23\n#O0 PV:CHI  PV:TTH\n#o0 chi tth"
	assert.Equal(t, header+countScanHeader+countRows+runEnd+countScanHeader+countRows+runEnd, m.Contents("shared.spec"))
	assert.Equal(t, []string{"shared.spec"}, s.Artifacts()[domain.LabelStreamData])
}

func TestSerializer_ExistingFileSkipsFileHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.spec"), []byte("#F shared.spec"), 0644))

	s, err := runtime.New(file.New(dir), runtime.Config{FilePrefix: "shared", Location: time.UTC})
	require.NoError(t, err)

	r := testutils.NewRun()
	handleAll(t, s, countRun(r, r.Stop(domain.ExitSuccess, ""))...)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "shared.spec"))
	require.NoError(t, err)
	assert.Equal(t, "#F shared.spec"+countScanHeader+countRows+runEnd, string(data))
}

func TestSerializer_FlushAfterEachRow(t *testing.T) {
	dir := t.TempDir()
	s, err := runtime.New(file.New(dir), runtime.Config{Flush: true, Location: time.UTC})
	require.NoError(t, err)
	defer s.Close()

	r := testutils.NewRun()
	handleAll(t, s, countRun(r, r.Stop(domain.ExitSuccess, ""))[:5]...)

	data, err := os.ReadFile(filepath.Join(dir, r.StartUID+domain.FileExtension))
	require.NoError(t, err)
	assert.Equal(t, fileHeader(r.StartUID)+countScanHeader+"\n1  1455890496 0.1 10", string(data))
}

func TestSerializer_EventPage(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	page := domain.Document{Name: domain.DocEventPage, Body: map[string]any{
		"descriptor": r.PrimaryUID,
		"uid":        []any{"e1", "e2"},
		"seq_num":    []any{1, 2},
		"time":       []any{testutils.StartTime + 1, testutils.StartTime + 2},
		"data":       map[string]any{"det": []any{json.Number("10"), json.Number("12")}},
		"timestamps": map[string]any{"det": []any{0.0, 0.0}},
	}}

	docs := countRun(r, r.Stop(domain.ExitSuccess, ""))
	handleAll(t, s, docs[0], docs[1], docs[2], docs[3], page, docs[6])

	assert.Equal(t, fileHeader(r.StartUID)+countScanHeader+countRows+runEnd, m.Contents(r.StartUID+domain.FileExtension))
}

func TestSerializer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Event Before Start", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		r := testutils.NewRun()
		assert.ErrorIs(t, s.Handle(ctx, r.Event(1, map[string]any{"det": 1})), domain.ErrNoRunStart)
		assert.ErrorIs(t, s.Handle(ctx, r.Primary(nil)), domain.ErrNoRunStart)
		assert.ErrorIs(t, s.Handle(ctx, r.Stop(domain.ExitSuccess, "")), domain.ErrNoRunStart)
	})

	t.Run("Event Before Primary", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		r := testutils.NewRun()
		handleAll(t, s, r.Start(nil))
		assert.ErrorIs(t, s.Handle(ctx, r.Event(1, map[string]any{"det": 1})), domain.ErrNoPrimaryDescriptor)
	})

	t.Run("Second Stream", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		r := testutils.NewRun()
		handleAll(t, s, r.Start(nil), r.Primary(map[string]string{"det": "PV:DET"}))
		extra, _ := r.Extra("monitor", map[string]string{"temp": "PV:T"})
		assert.ErrorIs(t, s.Handle(ctx, extra), domain.ErrMultipleStreams)
	})

	t.Run("Event From Unknown Descriptor", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		r := testutils.NewRun()
		handleAll(t, s, r.Start(nil), r.Primary(map[string]string{"det": "PV:DET"}))
		err := s.Handle(ctx, r.EventFor("nobody", 1, map[string]any{"det": 1}))
		assert.ErrorIs(t, err, domain.ErrMultipleStreams)
	})

	t.Run("Unknown Document", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		err := s.Handle(ctx, domain.Document{Name: "bulk_events"})
		assert.ErrorIs(t, err, domain.ErrUnknownDocument)
	})

	t.Run("Missing Column", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		r := testutils.NewRun()
		handleAll(t, s, r.Start(nil), r.Primary(map[string]string{"det": "PV:DET"}))
		err := s.Handle(ctx, r.Event(1, map[string]any{"other": 1}))
		assert.ErrorIs(t, err, domain.ErrMissingField)
	})

	t.Run("Multiple Motors", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		r := testutils.NewRun()
		handleAll(t, s,
			r.Start(map[string]any{"plan_name": "scan", "motors": []any{"th", "tth"}}),
			r.Primary(map[string]string{"det": "PV:DET"}),
		)
		err := s.Handle(ctx, r.Event(1, map[string]any{"det": 1}))
		assert.ErrorIs(t, err, domain.ErrMultipleMotors)
	})

	t.Run("After Close", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		assert.ErrorIs(t, s.Handle(ctx, testutils.NewRun().Start(nil)), domain.ErrClosed)
	})

	t.Run("Canceled Context", func(t *testing.T) {
		s, _ := newSerializer(t, runtime.Config{})
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, s.Handle(canceled, testutils.NewRun().Start(nil)), context.Canceled)
	})
}

func TestSerializer_IgnoresResourcesAndDatums(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	r := testutils.NewRun()

	docs := countRun(r, r.Stop(domain.ExitSuccess, ""))
	docs = append(docs[:3], append([]domain.Document{
		{Name: domain.DocResource, Body: map[string]any{"uid": "res"}},
		{Name: domain.DocDatum, Body: map[string]any{"datum_id": "res/0"}},
		{Name: domain.DocDatumPage, Body: map[string]any{}},
	}, docs[3:]...)...)
	handleAll(t, s, docs...)

	assert.Equal(t, fileHeader(r.StartUID)+countScanHeader+countRows+runEnd, m.Contents(r.StartUID+domain.FileExtension))
}

func TestSerializer_Lenient(t *testing.T) {
	t.Run("Extra Stream Ignored", func(t *testing.T) {
		s, m := newSerializer(t, runtime.Config{Lenient: true})
		r := testutils.NewRun()
		extra, extraUID := r.Extra("monitor", map[string]string{"temp": "PV:T"})

		docs := countRun(r, r.Stop(domain.ExitSuccess, ""))
		handleAll(t, s, docs[0], docs[1], docs[2], extra, docs[3],
			r.EventFor(extraUID, 1, map[string]any{"temp": 300}),
			docs[4], docs[5], docs[6])

		assert.Equal(t, fileHeader(r.StartUID)+countScanHeader+countRows+runEnd, m.Contents(r.StartUID+domain.FileExtension))
	})

	t.Run("Multiple Motors Fall Back To Sequence", func(t *testing.T) {
		s, m := newSerializer(t, runtime.Config{Lenient: true})
		r := testutils.NewRun()
		handleAll(t, s,
			r.Start(map[string]any{
				"plan_name": "scan",
				"motors":    []any{"th", "tth"},
				"plan_args": map[string]any{"args": []any{"th", -1, 1, "tth", 0, 2}, "num": 2},
			}),
			r.Primary(map[string]string{"det": "PV:DET"}),
			r.Event(1, map[string]any{"det": 3}),
		)
		assert.Contains(t, m.Contents(r.StartUID+domain.FileExtension), "#S 1 ascan seq_num 0 2 2 0.1\n")
		assert.Contains(t, m.Contents(r.StartUID+domain.FileExtension), "\n1  1455890496 0.1 3")
	})
}

func TestSerializer_NewRunResetsState(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{})
	first := testutils.NewRun()
	second := testutils.NewRun()

	// The first run never stops.
	handleAll(t, s, countRun(first, first.Stop(domain.ExitSuccess, ""))[:5]...)
	handleAll(t, s,
		second.Start(nil),
		second.Primary(map[string]string{"det": "PV:DET"}),
		second.Event(1, map[string]any{"det": json.Number("3")}),
	)

	// No baseline was declared for the second run.
	want := "#F " + second.StartUID + ".spec\n#E 1455890495\n#D " + readable + "\n#C xf23  User = xf23\n#O0 \n#o0 " +
		"\n\n#S 1 ct seq_num 0.1\n#D " + readable + "\n#T 0.1  (Seconds)\n#P0 \n#N 4\n#L seq_num  Epoch  Seconds  det" +
		"\n1  1455890496 0.1 3"
	assert.Equal(t, want, m.Contents(second.StartUID+domain.FileExtension))
	assert.Len(t, s.Artifacts()[domain.LabelStreamData], 2)
}

func TestSerializer_Hooks(t *testing.T) {
	var documents []domain.DocumentName
	var started, stopped []*domain.RunEvent
	rows := 0

	s, _ := newSerializer(t, runtime.Config{Hooks: domain.LifecycleHooks{
		OnDocument:   func(_ context.Context, e *domain.DocumentEvent) { documents = append(documents, e.Name) },
		OnRunStart:   func(_ context.Context, e *domain.RunEvent) { started = append(started, e) },
		OnRowWritten: func(_ context.Context, e *domain.RowEvent) { rows++ },
		OnRunStop:    func(_ context.Context, e *domain.RunEvent) { stopped = append(stopped, e) },
	}})
	r := testutils.NewRun()
	handleAll(t, s, countRun(r, r.Stop("abort", "beam dump"))...)

	assert.Len(t, documents, 7)
	assert.Equal(t, domain.DocStart, documents[0])
	require.Len(t, started, 1)
	assert.Equal(t, r.StartUID, started[0].RunUID)
	assert.Equal(t, domain.EventRunStart, started[0].Type)
	assert.Equal(t, 2, rows)
	require.Len(t, stopped, 1)
	assert.Equal(t, "abort", stopped[0].ExitStatus)
	assert.Equal(t, 2, stopped[0].Rows)
	assert.Equal(t, r.StartUID+domain.FileExtension, stopped[0].FileName)
}

func TestSerializer_FilePrefix(t *testing.T) {
	s, m := newSerializer(t, runtime.Config{FilePrefix: `{{date "2006-01-02" .start.time}}_{{.start.owner}}_{{.start.scan_id}}`})
	r := testutils.NewRun()
	handleAll(t, s, countRun(r, r.Stop(domain.ExitSuccess, ""))...)

	name := "2016-02-19_xf23_1.spec"
	assert.Equal(t, []string{name}, s.Artifacts()[domain.LabelStreamData])
	assert.Contains(t, m.Contents(name), "#F "+name+"\n")
}

func TestSerializer_FilePrefixRepr(t *testing.T) {
	s, _ := newSerializer(t, runtime.Config{FilePrefix: `{{.start.plan_name}}_{{repr .start.motors}}`})
	r := testutils.NewRun()
	require.NoError(t, s.Handle(context.Background(), r.ScanStart("th", -1, 1, 3)))

	assert.Equal(t, []string{"scan_['th'].spec"}, s.Artifacts()[domain.LabelStreamData])
}

func TestSerializer_FilePrefixErrors(t *testing.T) {
	_, err := runtime.New(memory.New(), runtime.Config{FilePrefix: "{{.start.uid"})
	assert.Error(t, err)

	s, _ := newSerializer(t, runtime.Config{FilePrefix: "{{.start.sample}}"})
	err = s.Handle(context.Background(), testutils.NewRun().Start(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file prefix")
}

func TestNew_RequiresManager(t *testing.T) {
	_, err := runtime.New(nil, runtime.Config{})
	assert.Error(t, err)
}
