package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/quill/internal/plan"
	"github.com/simonhull/firebird-suite/quill/internal/render"
	"github.com/simonhull/firebird-suite/quill/internal/resource"
	"github.com/simonhull/firebird-suite/quill/internal/schema"
)

// countingResolver counts Resolve calls
type countingResolver struct {
	inner Resolver
	calls atomic.Int32
}

func (r *countingResolver) Resolve(pkg, baseName, ext string) (string, error) {
	r.calls.Add(1)
	return r.inner.Resolve(pkg, baseName, ext)
}

// memorySink keeps written providers keyed by qualified name
type memorySink struct {
	mu        sync.Mutex
	files     map[string]string
	creates   int
	closes    int
	createErr error
	closeErr  error
}

func newMemorySink() *memorySink {
	return &memorySink{files: make(map[string]string)}
}

func (s *memorySink) Create(target plan.Target) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.creates++
	return &memoryFile{sink: s, name: target.QualifiedName}, nil
}

type memoryFile struct {
	bytes.Buffer
	sink *memorySink
	name string
}

func (f *memoryFile) Close() error {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	f.sink.closes++
	if f.sink.closeErr != nil {
		return f.sink.closeErr
	}
	f.sink.files[f.name] = f.String()
	return nil
}

// reports collects diagnostics
type reports struct {
	mu   sync.Mutex
	msgs []string
}

func (r *reports) Report(severity Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, severity.String()+": "+msg)
}

func greeting() schema.Declaration {
	return schema.Declaration{
		Package:    "com.acme",
		Name:       "Greeting",
		Visibility: schema.Public,
		Binding:    schema.Binding{FileExtension: "txt", NormalizeSpace: true},
	}
}

type fixture struct {
	resolver *countingResolver
	registry *plan.MemoryRegistry
	sink     *memorySink
	reports  *reports
	engine   *Engine
}

func newFixture(t *testing.T, primary, secondary fstest.MapFS) *fixture {
	t.Helper()

	res := &resource.Resolver{Primary: primary}
	if secondary != nil {
		res.Secondary = secondary
	}

	f := &fixture{
		resolver: &countingResolver{inner: res},
		registry: plan.NewMemoryRegistry(),
		sink:     newMemorySink(),
		reports:  &reports{},
	}

	eng, err := New(Config{
		Resolver: f.resolver,
		Registry: f.registry,
		Sink:     f.sink,
		Reporter: f.reports,
		Workers:  2,
	})
	require.NoError(t, err)
	f.engine = eng
	return f
}

func greetingFS() fstest.MapFS {
	return fstest.MapFS{"com/acme/Greeting.txt": {Data: []byte("Hello\n  World")}}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting()})
	require.NoError(t, err)
	assert.True(t, summary.OK())
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 0, summary.Skipped)

	lazy := f.sink.files["com.acme.GreetingProvider"]
	require.NotEmpty(t, lazy)
	assert.Contains(t, lazy, "// Code generated by quill from com/acme/Greeting.txt. DO NOT EDIT.")
	assert.Contains(t, lazy, "package acme\n")
	assert.Contains(t, lazy, `import textresource "`+DefaultRuntimeImport+`"`)
	assert.Contains(t, lazy, `var GreetingProvider textresource.Provider = textresource.Lazy("com/acme", "Greeting.txt")`)
	assert.Contains(t, lazy, "quill:visibility public")
	assert.NotContains(t, lazy, "Hello", "lazy providers never embed the text")

	embedded := f.sink.files["com.acme.GreetingProviderJ2cl"]
	require.NotEmpty(t, embedded)
	assert.Contains(t, embedded, `var GreetingProviderJ2cl textresource.Provider = textresource.Literal("Hello World")`)

	assert.Equal(t, f.sink.creates, f.sink.closes, "every writer is closed")
	assert.Empty(t, f.reports.msgs)
	assert.Equal(t, []string{"com.acme.GreetingProvider", "com.acme.GreetingProviderJ2cl"}, f.registry.Names())
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)
	decls := []schema.Declaration{greeting()}

	_, err := f.engine.Run(context.Background(), decls)
	require.NoError(t, err)
	require.Equal(t, 2, f.sink.creates)
	firstCalls := f.resolver.calls.Load()

	summary, err := f.engine.Run(context.Background(), decls)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Written)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, f.sink.creates, "second run writes nothing")
	assert.Equal(t, firstCalls, f.resolver.calls.Load(), "second run resolves nothing")
	for _, tr := range summary.Results[0].Targets {
		assert.Equal(t, Skipped, tr.State)
	}
}

func TestRun_ExistingTargetsSkippedIndependently(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)
	f.registry.Record("com.acme.GreetingProvider")

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting()})
	require.NoError(t, err)

	targets := summary.Results[0].Targets
	require.Len(t, targets, 2)
	assert.Equal(t, Skipped, targets[0].State)
	assert.Equal(t, Written, targets[1].State)
	assert.Equal(t, int32(1), f.resolver.calls.Load())
	assert.NotContains(t, f.sink.files, "com.acme.GreetingProvider")
}

func TestRun_EmptyExtension(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)

	bad := greeting()
	bad.Name = "Broken"
	bad.Binding.FileExtension = ""

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{bad, greeting()})
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	var cerr *ConfigurationError
	require.ErrorAs(t, summary.Results[0].Err, &cerr)
	assert.Equal(t, "com.acme.Broken", cerr.Declaration)
	assert.Empty(t, summary.Results[0].Targets)

	assert.False(t, summary.Results[1].Failed(), "the next declaration still runs")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Written)
	assert.NotContains(t, f.sink.files, "com.acme.BrokenProvider")

	require.Len(t, f.reports.msgs, 1)
	assert.Contains(t, f.reports.msgs[0], "error: invalid resource binding for com.acme.Broken")
}

func TestRun_SecondaryRootFallback(t *testing.T) {
	f := newFixture(t, fstest.MapFS{}, greetingFS())

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting()})
	require.NoError(t, err)
	assert.True(t, summary.OK())
	assert.Equal(t, 2, summary.Written)
}

func TestRun_NormalizeSpace(t *testing.T) {
	text := "  Hello\n\t World \r\n"

	tests := []struct {
		name      string
		normalize bool
		literal   string
	}{
		{"normalized", true, strconv.Quote(" Hello World ")},
		{"verbatim", false, strconv.Quote(text)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fstest.MapFS{"com/acme/Greeting.txt": {Data: []byte(text)}}, nil)

			decl := greeting()
			decl.Binding.NormalizeSpace = tt.normalize

			_, err := f.engine.Run(context.Background(), []schema.Declaration{decl})
			require.NoError(t, err)

			assert.Contains(t, f.sink.files["com.acme.GreetingProviderJ2cl"], "textresource.Literal("+tt.literal+")")
		})
	}
}

func TestRun_MissingResource(t *testing.T) {
	f := newFixture(t, fstest.MapFS{}, fstest.MapFS{})

	other := greeting()
	other.Name = "Farewell"

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting(), other})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	assert.Empty(t, f.sink.files)
	assert.Len(t, f.reports.msgs, 4, "each target of each declaration is reported")

	tr := summary.Results[0].Targets[0]
	assert.Equal(t, Failed, tr.State)
	var rerr *resource.ResolutionError
	require.ErrorAs(t, tr.Err, &rerr)
	assert.Equal(t, "Greeting", rerr.Name)
	assert.False(t, f.registry.Lookup("com.acme.GreetingProvider"), "failed targets are not recorded")
}

func TestRun_BrokenTemplateStoreAbortsBatch(t *testing.T) {
	sink := newMemorySink()
	eng, err := New(Config{
		Resolver: &resource.Resolver{Primary: greetingFS()},
		Renderer: render.NewRendererFS(fstest.MapFS{
			"runtime-loading.tmpl": {Data: []byte("package $GOPACKAGE\n")},
		}),
		Sink: sink,
	})
	require.NoError(t, err)

	summary, err := eng.Run(context.Background(), []schema.Declaration{greeting()})
	require.Error(t, err)
	assert.Nil(t, summary)

	var terr *render.TemplateError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, render.EmbeddedLiteral, terr.ID)
	assert.Zero(t, sink.creates)
}

func TestRun_SinkFailures(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		f := newFixture(t, greetingFS(), nil)
		f.sink.createErr = errors.New("read-only file system")

		summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting()})
		require.NoError(t, err)

		var werr *WriteError
		require.ErrorAs(t, summary.Results[0].Targets[0].Err, &werr)
		assert.Equal(t, "com.acme.GreetingProvider", werr.Target)
		assert.Equal(t, 1, summary.Failed)
	})

	t.Run("close", func(t *testing.T) {
		f := newFixture(t, greetingFS(), nil)
		f.sink.closeErr = errors.New("disk full")

		summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting()})
		require.NoError(t, err)

		var werr *WriteError
		require.ErrorAs(t, summary.Results[0].Targets[1].Err, &werr)
		assert.Equal(t, f.sink.creates, f.sink.closes)
		assert.Empty(t, f.sink.files)
	})
}

func TestRun_ManyDeclarations(t *testing.T) {
	files := fstest.MapFS{}
	var decls []schema.Declaration
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("Message%02d", i)
		files["com/acme/"+name+".txt"] = &fstest.MapFile{Data: []byte(name)}

		decl := greeting()
		decl.Name = name
		decls = append(decls, decl)
	}

	f := newFixture(t, files, nil)
	summary, err := f.engine.Run(context.Background(), decls)
	require.NoError(t, err)

	assert.Equal(t, 80, summary.Written)
	for i, r := range summary.Results {
		assert.Equal(t, decls[i].Name, r.Declaration.Name, "results keep declaration order")
	}
	assert.Contains(t, f.sink.files["com.acme.Message07ProviderJ2cl"], `textresource.Literal("Message07")`)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.engine.Run(ctx, []schema.Declaration{greeting()})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Zero(t, f.sink.creates)
}

func TestRun_PrivateVisibility(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)

	decl := greeting()
	decl.Visibility = schema.Private

	_, err := f.engine.Run(context.Background(), []schema.Declaration{decl})
	require.NoError(t, err)

	lazy := f.sink.files["com.acme.greetingProvider"]
	assert.Contains(t, lazy, "var greetingProvider textresource.Provider")
	assert.Contains(t, lazy, "quill:visibility private")
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Sink: newMemorySink()})
	assert.Error(t, err)

	_, err = New(Config{Resolver: &resource.Resolver{}})
	assert.Error(t, err)

	eng, err := New(Config{Resolver: &resource.Resolver{}, Sink: newMemorySink()})
	require.NoError(t, err)
	assert.Positive(t, eng.cfg.Workers)
	assert.Equal(t, DefaultRuntimeImport, eng.cfg.RuntimeImport)
}

func TestNormalizeSpace(t *testing.T) {
	tests := map[string]string{
		"Hello\n  World":           "Hello World",
		"a\t\tb\r\nc":              "a b c",
		"  padded  ":               " padded ",
		"single space intact":      "single space intact",
		"":                         "",
		"\u00a0nbsp\u2003\u2003em": " nbsp em",
		"a\xffb  c":                "a\xffb c",
		"\xfe\n\n\xff":             "\xfe \xff",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSpace(in), strconv.Quote(in))
	}
}

// failingSink hands out writers whose Write always fails
type failingSink struct {
	mu        sync.Mutex
	aborts    int
	closes    int
	committed []string
}

func (s *failingSink) Create(target plan.Target) (io.WriteCloser, error) {
	return &failingFile{sink: s, name: target.QualifiedName}, nil
}

type failingFile struct {
	sink    *failingSink
	name    string
	aborted bool
}

func (f *failingFile) Write(p []byte) (int, error) {
	return 0, errors.New("no space left on device")
}

func (f *failingFile) Abort() {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	f.aborted = true
	f.sink.aborts++
}

func (f *failingFile) Close() error {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	f.sink.closes++
	if !f.aborted {
		f.sink.committed = append(f.sink.committed, f.name)
	}
	return nil
}

func TestRun_FailedWriteIsAborted(t *testing.T) {
	sink := &failingSink{}
	registry := plan.NewMemoryRegistry()
	eng, err := New(Config{
		Resolver: &resource.Resolver{Primary: greetingFS()},
		Registry: registry,
		Sink:     sink,
		Reporter: &reports{},
	})
	require.NoError(t, err)

	summary, err := eng.Run(context.Background(), []schema.Declaration{greeting()})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	var werr *WriteError
	require.ErrorAs(t, summary.Results[0].Targets[0].Err, &werr)
	assert.Contains(t, werr.Error(), "no space left on device")

	assert.Equal(t, 2, sink.aborts)
	assert.Equal(t, 2, sink.closes, "aborted writers are still closed")
	assert.Empty(t, sink.committed, "nothing is committed after a failed write")
	assert.Empty(t, registry.Names())
}

func TestRun_CollidingProviderNames(t *testing.T) {
	files := fstest.MapFS{
		"com/acme/Greeting.txt": {Data: []byte("Hello")},
		"com/acme/greeting.txt": {Data: []byte("hello")},
	}
	f := newFixture(t, files, nil)

	lower := greeting()
	lower.Name = "greeting" // public, so its providers are spelled GreetingProvider too

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{greeting(), lower})
	require.NoError(t, err)

	assert.False(t, summary.OK())
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Written)
	assert.Zero(t, summary.Skipped, "a collision is never reported as an existing provider")

	var cerr *ConfigurationError
	require.ErrorAs(t, summary.Results[1].Err, &cerr)
	assert.Equal(t, "com.acme.greeting", cerr.Declaration)
	assert.Contains(t, cerr.Error(), "provider com.acme.GreetingProvider is already planned for com.acme.Greeting")
	assert.Empty(t, summary.Results[1].Targets)

	assert.EqualValues(t, 2, f.resolver.calls.Load(), "only the owner's resource is read")
	assert.Contains(t, f.sink.files["com.acme.GreetingProviderJ2cl"], `textresource.Literal("Hello")`)

	require.Len(t, f.reports.msgs, 1)
	assert.Contains(t, f.reports.msgs[0], "error: ")
}

func TestRun_CollidingProviderFiles(t *testing.T) {
	files := fstest.MapFS{
		"com/acme/HTTPBanner.txt": {Data: []byte("a")},
		"com/acme/HttpBanner.txt": {Data: []byte("b")},
	}
	f := newFixture(t, files, nil)

	first := greeting()
	first.Name = "HTTPBanner"
	second := greeting()
	second.Name = "HttpBanner"

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{first, second})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	var cerr *ConfigurationError
	require.ErrorAs(t, summary.Results[1].Err, &cerr)
	assert.Contains(t, cerr.Error(), "file com/acme/http_banner_provider.go is already planned for com.acme.HTTPBanner")
	assert.Contains(t, f.sink.files, "com.acme.HTTPBannerProvider")
	assert.NotContains(t, f.sink.files, "com.acme.HttpBannerProvider")
}

func TestRun_RepeatedDeclarationWarns(t *testing.T) {
	f := newFixture(t, greetingFS(), nil)

	first := greeting()
	first.Source = "quill.resources.yml:4"
	again := greeting()
	again.Source = "com/acme/greeting.go:3"

	summary, err := f.engine.Run(context.Background(), []schema.Declaration{first, again})
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Equal(t, 2, summary.Written)
	assert.True(t, summary.Results[1].Repeated)
	assert.Empty(t, summary.Results[1].Targets)

	require.Len(t, f.reports.msgs, 1)
	assert.Contains(t, f.reports.msgs[0], "warning: com.acme.Greeting is declared more than once")
	assert.Contains(t, f.reports.msgs[0], "com/acme/greeting.go:3")
}
