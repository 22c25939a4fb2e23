package formstate

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/persistence"
)

var signupDefinition = filepath.Join("pkg", "definition", "testdata", "signup.yaml")

func TestGenerateHTML(t *testing.T) {
	ctx := context.Background()
	def, err := Load(ctx, signupDefinition)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := GenerateHTML(ctx, def, RenderOptions{Action: "/signup"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	html := string(out)
	for _, want := range []string{`action="/signup"`, `name="confirm_password"`, `<option value="free" selected>`} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestNewController_RestoresDraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	def, err := Load(ctx, signupDefinition)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	store := persistence.NewMemoryStore()
	drafts := persistence.NewDraftAdapter(store, def.ID)

	first := NewController(ctx, def, controller.WithDraft(drafts))
	if err := first.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Ada")}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	first.SaveNow(ctx)
	first.Close()

	second := NewController(ctx, def, controller.WithDraft(drafts))
	defer second.Close()
	if n := second.RestoreDraft(ctx); n == 0 {
		t.Fatalf("nothing restored")
	}
	field, _ := second.Form().Field("name")
	if field.Value.String() != "Ada" {
		t.Fatalf("name = %q", field.Value.String())
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "form.tmpl"); err != nil {
		t.Fatalf("expected form template: %v", err)
	}
}
