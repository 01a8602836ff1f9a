package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newProject lays out a module with one directive-marked declaration and
// one manifest entry whose resource lives in the secondary root
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/app\n\ngo 1.25\n")
	writeFile(t, dir, "com/acme/greeting.go", `package acme

//quill:resource normalize
type Greeting struct{}
`)
	writeFile(t, dir, "com/acme/Greeting.txt", "Hello,\n   world")
	writeFile(t, dir, "quill.resources.yml", `apiVersion: quill/v1
kind: TextResources
resources:
  - package: com.acme
    name: footer
    extension: md
`)
	writeFile(t, dir, "build/resources/com/acme/footer.md", "-- the acme team")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	root.AddCommand(GenerateCmd(), PlanCmd(), VersionCmd())

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestGenerateWritesProviders(t *testing.T) {
	dir := newProject(t)
	t.Chdir(dir)

	out, err := execute(t, "generate", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Create com/acme/greeting_provider.go")

	lazy := readFile(t, dir, "com/acme/greeting_provider.go")
	assert.Contains(t, lazy, "// Code generated by quill from com/acme/Greeting.txt. DO NOT EDIT.")
	assert.Contains(t, lazy, "package acme")
	assert.Contains(t, lazy, `var GreetingProvider textresource.Provider = textresource.Lazy("com/acme", "Greeting.txt")`)

	embedded := readFile(t, dir, "com/acme/greeting_provider_j2cl.go")
	assert.Contains(t, embedded, `var GreetingProviderJ2cl textresource.Provider = textresource.Literal("Hello, world")`)

	// Unexported manifest declaration, resource found in the secondary root
	footer := readFile(t, dir, "com/acme/footer_provider_j2cl.go")
	assert.Contains(t, footer, `var footerProviderJ2cl textresource.Provider = textresource.Literal("-- the acme team")`)
	assert.FileExists(t, filepath.Join(dir, "com/acme/footer_provider.go"))

	// A second run finds every provider and writes nothing
	out, err = execute(t, "generate")
	require.NoError(t, err)
	assert.NotContains(t, out, "Create ")
}

func TestGenerateDryRun(t *testing.T) {
	dir := newProject(t)
	t.Chdir(dir)

	out, err := execute(t, "generate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[DRY RUN] Create com/acme/greeting_provider.go")
	assert.NoFileExists(t, filepath.Join(dir, "com/acme/greeting_provider.go"))
}

func TestGenerateReportsFailures(t *testing.T) {
	dir := newProject(t)
	writeFile(t, dir, "com/acme/missing.go", `package acme

//quill:resource
type Missing struct{}
`)
	t.Chdir(dir)

	_, err := execute(t, "generate")
	require.ErrorIs(t, err, errFailed)

	// The failing declaration does not stop the others
	assert.FileExists(t, filepath.Join(dir, "com/acme/greeting_provider.go"))
	assert.NoFileExists(t, filepath.Join(dir, "com/acme/missing_provider.go"))
}

func TestGenerateWithoutScan(t *testing.T) {
	dir := newProject(t)
	t.Chdir(dir)

	_, err := execute(t, "generate", "--no-scan")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "com/acme/footer_provider.go"))
	assert.NoFileExists(t, filepath.Join(dir, "com/acme/greeting_provider.go"))
}

func TestGenerateExplicitManifestMissing(t *testing.T) {
	dir := newProject(t)
	t.Chdir(dir)

	_, err := execute(t, "generate", "--manifest", "nope.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerateOutputRoot(t *testing.T) {
	dir := newProject(t)
	t.Chdir(dir)

	_, err := execute(t, "generate", "--out", "gen", "--embedded-suffix", "Inline")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "gen/com/acme/greeting_provider_inline.go"))
	assert.NoFileExists(t, filepath.Join(dir, "com/acme/greeting_provider.go"))
}

func TestPlanDoesNotWrite(t *testing.T) {
	dir := newProject(t)
	t.Chdir(dir)

	_, err := execute(t, "plan")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "com/acme/greeting_provider.go"))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "quill ")
}
