package runtime

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/meadow/internal/analysis"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/syntax"
)

const modelSource = `globals [ score lives ]
breed [ wolves wolf ]
to go fd 1 end
to-report double [ n ] report n * 2 end`

// runRules validates src with every rule script of rt.
func runRules(t *testing.T, rt *Runtime, src string) []lint.Diagnostic {
	t.Helper()
	vs, err := rt.Validators()
	require.NoError(t, err)
	pre := analysis.Preprocess(src, 1)
	tree := syntax.NewParser().Parse(src, pre)
	ctx := analysis.Build(tree, pre, 1)
	return lint.NewPipeline(vs).Run(context.Background(), lint.Input{
		Tree:      tree,
		Pre:       pre,
		Lint:      ctx,
		SessionID: 1,
	})
}

func newObservedRuntime(t *testing.T, fsys fs.FS) (*Runtime, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return NewRuntime("", WithRuntimeFS(fsys), WithLogger(zap.New(core))), logs
}

// =============================================================================
// Rule scripts
// =============================================================================

func TestScripts_ListsTopLevelRulesOnly(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"b.risor":        &fstest.MapFile{Data: []byte(``)},
		"a.risor":        &fstest.MapFile{Data: []byte(``)},
		"lib_util.risor": &fstest.MapFile{Data: []byte(``)},
		"notes.txt":      &fstest.MapFile{Data: []byte(``)},
		"sub/c.risor":    &fstest.MapFile{Data: []byte(``)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	names, err := rt.Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.risor", "b.risor"}, names)
}

func TestScripts_FromDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rule.risor"), []byte(``), 0644))

	names, err := NewRuntime(dir).Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"rule.risor"}, names)
}

func TestScripts_NoSource(t *testing.T) {
	t.Parallel()
	names, err := NewRuntime("").Scripts()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestHash_CoversLibrariesAndContent(t *testing.T) {
	t.Parallel()
	base := fstest.MapFS{
		"a.risor":        &fstest.MapFile{Data: []byte(`x := 1`)},
		"lib_util.risor": &fstest.MapFile{Data: []byte(`y := 1`)},
	}
	editedLib := fstest.MapFS{
		"a.risor":        &fstest.MapFile{Data: []byte(`x := 1`)},
		"lib_util.risor": &fstest.MapFile{Data: []byte(`y := 2`)},
	}
	h := NewRuntime("", WithRuntimeFS(base)).Hash()
	assert.Equal(t, h, NewRuntime("", WithRuntimeFS(base)).Hash())
	assert.NotEqual(t, h, NewRuntime("", WithRuntimeFS(editedLib)).Hash())
}

func TestValidators_NamesAndDoc(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"no-globals.risor": &fstest.MapFile{Data: []byte("// Models without globals.\n// Second line.\nx := 1\n")},
	}
	vs, err := NewRuntime("", WithRuntimeFS(mapFS)).Validators()
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "script:no-globals", vs[0].Name)
	assert.Equal(t, "Models without globals. Second line.", vs[0].Doc)
	assert.Equal(t, "script:no-globals", ValidatorName("no-globals.risor"))
}

func TestValidators_ReportFromScript(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"each-global.risor": &fstest.MapFile{Data: []byte(`
for _, name := range globals() {
	report({"from": 0, "to": 7, "severity": "error", "message": 'global {name}'})
}
`)},
	}
	diags := runRules(t, NewRuntime("", WithRuntimeFS(mapFS)), modelSource)
	require.Len(t, diags, 2)
	for i, want := range []string{"global lives", "global score"} {
		assert.Equal(t, want, diags[i].Message)
		assert.Equal(t, "script:each-global", diags[i].Validator)
		assert.Equal(t, lint.SeverityError, diags[i].Severity)
		assert.Equal(t, 0, diags[i].From)
		assert.Equal(t, 7, diags[i].To)
	}
}

func TestValidators_HostFunctions(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"check.risor": &fstest.MapFile{Data: []byte(`
procs := procedures()
assert(len(procs) == 2, 'procedures: {len(procs)}')
assert(procs[0]["name"] == "go", "first procedure")
assert(procs[0]["kind"] == "command", "go is a command")
assert(procs[1]["kind"] == "reporter", "double is a reporter")
assert(procs[1]["arguments"][0] == "n", "double takes n")

gs := globals()
assert(len(gs) == 2 && gs[0] == "lives" && gs[1] == "score", "globals")

bs := breeds()
assert(len(bs) == 1, 'breeds: {len(bs)}')
assert(bs[0]["plural"] == "wolves" && bs[0]["singular"] == "wolf", "wolves")
assert(bs[0]["declared"], "wolves declared")

names := nodes("ProcedureName")
assert(len(names) == 2, 'procedure names: {len(names)}')
assert(names[0]["name"] == "go", "go node")
assert(names[0]["kind"] == "ProcedureName", "kind")
assert(text(names[0]["from"], names[0]["to"]) == "go", "text of go")
assert(text(-5, 100000) == source, "clamped text")

report({"from": 0, "to": 1, "message": "ok"})
`)},
	}
	rt, logs := newObservedRuntime(t, mapFS)
	diags := runRules(t, rt, modelSource)
	require.Len(t, diags, 1, "script logs: %v", logs.All())
	assert.Equal(t, "ok", diags[0].Message)
	assert.Equal(t, lint.SeverityWarning, diags[0].Severity)
}

func TestValidators_ScriptFailureIsLogged(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"broken.risor": &fstest.MapFile{Data: []byte(`
report({"from": 0, "to": 1, "message": "before"})
nodes("NoSuchKind")
`)},
	}
	rt, logs := newObservedRuntime(t, mapFS)
	diags := runRules(t, rt, modelSource)

	// Findings reported before the failure are kept.
	require.Len(t, diags, 1)
	failures := logs.FilterMessage("rule script failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "script:broken", failures[0].ContextMap()["validator"])
}

func TestValidators_InvalidSeverity(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"bad.risor": &fstest.MapFile{Data: []byte(`report({"message": "m", "severity": "fatal"})`)},
	}
	rt, logs := newObservedRuntime(t, mapFS)
	assert.Empty(t, runRules(t, rt, modelSource))
	assert.Equal(t, 1, logs.FilterMessage("rule script failed").Len())
}

func TestLog_WritesThroughLogger(t *testing.T) {
	t.Parallel()
	rt, logs := newObservedRuntime(t, fstest.MapFS{})
	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))

	entries := logs.FilterMessage("careful").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "<inline>", entries[0].ContextMap()["script"])
}

// =============================================================================
// Script loading
// =============================================================================

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	if err := os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	rt := NewRuntime(dir)
	err := rt.RunScript(context.Background(), "test.risor", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `assert(answer == 42, "answer")`, map[string]any{
		"answer": 42,
	})
	require.NoError(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got != content {
		t.Errorf("LoadScript = %q, want %q", got, content)
	}
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"rules/a.risor": &fstest.MapFile{Data: []byte(content)},
	}

	got, err := NewRuntime("", WithRuntimeFS(mapFS)).LoadScript("rules/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))
	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"rules/a.risor": &fstest.MapFile{Data: []byte(content)},
	}

	got, err := NewRuntime("", WithRuntimeFS(mapFS)).LoadScript("/rules/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0644))

	got, err := NewRuntime(dir).LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// =============================================================================
// Importer wiring
// =============================================================================

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib_math.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	script := `
import lib_math

result := lib_math.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, NewRuntime(dir).RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// The log global is always provided, so imported modules may use it.
	mapFS := fstest.MapFS{
		"lib_helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helper
lib_helper.do_log("test message")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
}
