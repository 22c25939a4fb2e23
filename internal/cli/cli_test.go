package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/persistence"
	"github.com/goliatone/go-formstate/pkg/renderers/tui"
)

var signupPath = filepath.Join("testdata", "signup.yaml")

func testRoot(t *testing.T) *RootOptions {
	t.Helper()
	cfg := config.Default()
	cfg.Storage = config.Storage{Driver: config.DriverFile, Path: filepath.Join(t.TempDir(), "state")}
	return &RootOptions{Config: cfg, Logger: zap.NewNop()}
}

// scriptedDriver answers prompts from fixed lists and aborts once a list
// runs out.
type scriptedDriver struct {
	inputs   []string
	confirms []bool
	defaults []string
}

func (d *scriptedDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	d.defaults = append(d.defaults, cfg.Default)
	if len(d.inputs) == 0 {
		return "", tui.ErrAborted
	}
	answer := d.inputs[0]
	d.inputs = d.inputs[1:]
	return answer, nil
}

func (d *scriptedDriver) Password(ctx context.Context, cfg tui.InputConfig) (string, error) {
	return d.Input(ctx, cfg)
}

func (d *scriptedDriver) Confirm(_ context.Context, _ tui.ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, tui.ErrAborted
	}
	answer := d.confirms[0]
	d.confirms = d.confirms[1:]
	return answer, nil
}

func (d *scriptedDriver) Select(_ context.Context, _ tui.SelectConfig) (int, error) {
	return 0, nil
}

func (d *scriptedDriver) Info(_ context.Context, _ string) error {
	return nil
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_ReportsFailures(t *testing.T) {
	out, err := run(t, NewValidateCommand(testRoot(t)), signupPath, "--set", "name=Al", "--set", "terms=false")
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t,
		"✗ name: minimum 3 characters\n✗ email: This field is required\n✗ terms: This field is required\n",
		out)
}

func TestValidate_JSONValuesFile(t *testing.T) {
	values := filepath.Join(t.TempDir(), "values.json")
	require.NoError(t, os.WriteFile(values, []byte(`{"name":"Alice","email":"alice@example.com","terms":true}`), 0o644))

	out, err := run(t, NewValidateCommand(testRoot(t)), signupPath, "--values", values, "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, ValidationResult{Form: "signup", Valid: true}, result)
}

func TestValidate_RejectsBadInput(t *testing.T) {
	_, err := run(t, NewValidateCommand(testRoot(t)), signupPath, "--set", "nope=1")
	assert.ErrorIs(t, err, form.ErrFieldNotFound)

	_, err = run(t, NewValidateCommand(testRoot(t)), signupPath, "--set", "terms=maybe")
	assert.Error(t, err)

	_, err = run(t, NewValidateCommand(testRoot(t)), signupPath, "--format", "xml")
	assert.Error(t, err)
}

func TestProgress_CompleteShowReset(t *testing.T) {
	root := testRoot(t)

	out, err := run(t, NewProgressCommand(root), "complete", "teoria", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"completadas":["teoria"],"progreso":20}`, out)

	out, err = run(t, NewProgressCommand(root), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[x] teoria\n[ ] ejemplos\n")
	assert.Contains(t, out, "20% complete\n")

	_, err = run(t, NewProgressCommand(root), "complete", "quiz-final")
	assert.ErrorIs(t, err, persistence.ErrUnknownSection)

	out, err = run(t, NewProgressCommand(root), "toggle", "teoria", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"completadas":[],"progreso":0}`, out)

	_, err = run(t, NewProgressCommand(root), "complete", "ejemplos")
	require.NoError(t, err)
	out, err = run(t, NewProgressCommand(root), "reset", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"completadas":[],"progreso":0}`, out)
}

func TestFill_WritesValuesAndDropsDraft(t *testing.T) {
	root := testRoot(t)
	root.prompts = &scriptedDriver{
		inputs:   []string{"Alice", "alice@example.com"},
		confirms: []bool{true},
	}

	out, err := run(t, NewFillCommand(root), signupPath)
	require.NoError(t, err)
	assert.Equal(t, `{"email":"alice@example.com","name":"Alice","terms":true}`+"\n", out)

	store, err := persistence.NewFileStore(root.Config.Storage.Path)
	require.NoError(t, err)
	_, ok, err := store.Get(context.Background(), persistence.DraftKey("signup"))
	require.NoError(t, err)
	assert.False(t, ok, "draft should be removed after a completed fill")
}

func TestFill_AbortKeepsDraftForNextRun(t *testing.T) {
	root := testRoot(t)
	root.prompts = &scriptedDriver{inputs: []string{"Alice"}}

	_, err := run(t, NewFillCommand(root), signupPath)
	require.ErrorIs(t, err, tui.ErrAborted)

	store, err := persistence.NewFileStore(root.Config.Storage.Path)
	require.NoError(t, err)
	draft := persistence.NewDraftAdapter(store, "signup").Load(context.Background())
	assert.Equal(t, model.Text("Alice"), draft.Values["name"])

	resumed := &scriptedDriver{
		inputs:   []string{"Alice", "alice@example.com"},
		confirms: []bool{true},
	}
	root.prompts = resumed
	out, err := run(t, NewFillCommand(root), signupPath, "--format", "pretty")
	require.NoError(t, err)
	assert.Equal(t, "name=Alice\nemail=alice@example.com\nterms=true\n", out)
	assert.Equal(t, "Alice", resumed.defaults[0])
}

func TestRender_HTMLToFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "signup.html")
	_, err := run(t, NewRenderCommand(testRoot(t)), signupPath, "-o", output, "--action", "/submit", "--submit-label", "Join")
	require.NoError(t, err)

	html, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(html), `<form class="formstate" id="form-signup" method="POST" action="/submit" novalidate>`)
	assert.Contains(t, string(html), `<button type="submit">Join</button>`)
}

func TestRender_OpenAPIOperation(t *testing.T) {
	spec := filepath.Join("..", "..", "pkg", "definition", "testdata", "api.yaml")
	out, err := run(t, NewRenderCommand(testRoot(t)), spec, "--operation", "createAccount")
	require.NoError(t, err)
	assert.Contains(t, out, `id="form-createAccount"`)
	assert.Contains(t, out, `name="username"`)
}

func TestRender_UnknownRenderer(t *testing.T) {
	_, err := run(t, NewRenderCommand(testRoot(t)), signupPath, "--renderer", "pdf")
	assert.Error(t, err)
}

func TestBuildServer_PublishesForms(t *testing.T) {
	root := testRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, closeAll, err := buildServer(ctx, root, sourceFlags{}, []string{signupPath})
	require.NoError(t, err)
	defer closeAll()

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/forms", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"signup","title":"Sign up","fields":3}]`, rec.Body.String())

	_, _, err = buildServer(ctx, root, sourceFlags{}, []string{signupPath, signupPath})
	assert.Error(t, err, "duplicate form ids are refused")
}

func TestRootCommand_LoadsConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "formstate.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"storage:\n  driver: sqlite\n  path: "+filepath.Join(dir, "state.db")+"\nprogress:\n  sections: [intro, outro]\nlog:\n  level: error\n",
	), 0o644))

	out, err := run(t, NewRootCommand(), "--config", cfgPath, "progress", "complete", "intro", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"completadas":["intro"],"progreso":50}`, out)

	out, err = run(t, NewRootCommand(), "--config", cfgPath, "progress", "show", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"completadas":["intro"],"progreso":50}`, out)

	_, err = run(t, NewRootCommand(), "--config", cfgPath, "--log-level", "loud", "progress", "show")
	assert.Error(t, err)
}
