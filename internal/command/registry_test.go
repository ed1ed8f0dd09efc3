package command

import (
	"context"
	"strings"
	"testing"
)

// echo returns a Sync handler that always answers resp.
func echo(resp string) Handler {
	return Sync(func(context.Context, Request) (string, error) { return resp, nil })
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    Spec
		wantErr string
	}{
		{
			name:    "empty name",
			spec:    Spec{Name: "  ", Keywords: []string{"x"}, Handler: echo("ok")},
			wantErr: "empty name",
		},
		{
			name:    "no keywords",
			spec:    Spec{Name: "saat", Handler: echo("ok")},
			wantErr: "no keywords",
		},
		{
			name:    "empty keyword",
			spec:    Spec{Name: "saat", Keywords: []string{"saat", " "}, Handler: echo("ok")},
			wantErr: "empty keyword",
		},
		{
			name:    "nil handler",
			spec:    Spec{Name: "saat", Keywords: []string{"saat"}},
			wantErr: "nil handler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			err := reg.Register(tt.spec)
			if err == nil {
				t.Fatal("Register succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	spec := Spec{Name: "saat", Keywords: []string{"saat"}, Handler: echo("ok")}
	if err := reg.Register(spec); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := reg.Register(spec)
	if err == nil {
		t.Fatal("second Register succeeded, want duplicate error")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %q, want duplicate", err)
	}
}

func TestResolve_RegistrationOrderWins(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, name := range []string{"google", "youtube"} {
		if err := reg.Register(Spec{Name: name, Keywords: []string{name}, Handler: echo(name)}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	// Both keywords occur; the earlier-registered command must win.
	m, ok := reg.Resolve("youtube yerine google aç")
	if !ok {
		t.Fatal("Resolve found no match")
	}
	if m.Name != "google" {
		t.Errorf("resolved %q, want google", m.Name)
	}
	if m.ViaAlias {
		t.Error("ViaAlias = true for a keyword match")
	}
}

func TestResolve_KeywordBeatsMoreSpecificAlias(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "saat", Keywords: []string{"saat"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Alias("saat kaç", "saat")

	m, ok := reg.Resolve("saat kaç")
	if !ok {
		t.Fatal("Resolve found no match")
	}
	if m.ViaAlias {
		t.Error("alias matched although the keyword occurs in the utterance")
	}
	if m.Keyword != "saat" {
		t.Errorf("matched keyword %q, want %q", m.Keyword, "saat")
	}
}

func TestResolve_AliasMatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "haberler", Keywords: []string{"haberler"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Alias("haber ver", "haberler")

	m, ok := reg.Resolve("bana haber ver lütfen")
	if !ok {
		t.Fatal("Resolve found no match")
	}
	if m.Name != "haberler" {
		t.Errorf("resolved %q, want haberler", m.Name)
	}
	if !m.ViaAlias {
		t.Error("ViaAlias = false for an alias match")
	}
	if m.Keyword != "haber ver" {
		t.Errorf("matched phrase %q, want %q", m.Keyword, "haber ver")
	}
}

func TestResolve_DeadAliasYieldsNoMatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "kapat", Keywords: []string{"kapat"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Alias("yeniden başlat", "restart")

	if m, ok := reg.Resolve("yeniden başlat"); ok {
		t.Errorf("Resolve = %+v, want no match for an alias with an unregistered target", m)
	}
}

func TestResolve_DeadAliasConsumesTheMatch(t *testing.T) {
	t.Parallel()

	// A later alias would also match, but the dead one is hit first and
	// ends resolution so the utterance falls to the chat fallback.
	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "haberler", Keywords: []string{"haberler"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Alias("haber", "gazete")
	reg.Alias("haber ver", "haberler")

	if m, ok := reg.Resolve("haber ver"); ok {
		t.Errorf("Resolve = %+v, want no match", m)
	}
}

func TestResolve_TurkishCaseFolding(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "yıldız", Keywords: []string{"yıldız"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(Spec{Name: "izmir", Keywords: []string{"izmir"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Dotless I: "YILDIZ" must lower to "yıldız", not "yildiz".
	if m, ok := reg.Resolve("YILDIZ falı"); !ok || m.Name != "yıldız" {
		t.Errorf("Resolve(YILDIZ falı) = %+v, %v; want yıldız", m, ok)
	}
	// Dotted capital İ: "İZMİR" must lower to "izmir".
	if m, ok := reg.Resolve("İZMİR nasıl"); !ok || m.Name != "izmir" {
		t.Errorf("Resolve(İZMİR nasıl) = %+v, %v; want izmir", m, ok)
	}
}

func TestResolve_DiacriticSensitive(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "müzik çal", Keywords: []string{"müzik çal"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, ok := reg.Resolve("muzik çal"); ok {
		t.Error("Resolve matched a keyword with a missing diacritic")
	}
}

func TestResolve_EmptyUtterance(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "saat", Keywords: []string{"saat"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, utterance := range []string{"", "   ", "\t\n"} {
		if m, ok := reg.Resolve(utterance); ok {
			t.Errorf("Resolve(%q) = %+v, want no match", utterance, m)
		}
	}
}

func TestResolve_NoMatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(Spec{Name: "saat", Keywords: []string{"saat"}, Handler: echo("ok")}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if m, ok := reg.Resolve("bugün hava çok güzel"); ok {
		t.Errorf("Resolve = %+v, want no match", m)
	}
}

func TestCommands_Snapshot(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	names := []string{"google", "youtube", "saat"}
	for _, name := range names {
		if err := reg.Register(Spec{Name: name, Keywords: []string{name}, Handler: echo(name)}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	cmds := reg.Commands()
	if len(cmds) != len(names) {
		t.Fatalf("Commands returned %d specs, want %d", len(cmds), len(names))
	}
	for i, name := range names {
		if cmds[i].Name != name {
			t.Errorf("Commands()[%d].Name = %q, want %q", i, cmds[i].Name, name)
		}
	}
}

func TestReplaceAliases(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, name := range []string{"saat", "haberler"} {
		if err := reg.Register(Spec{Name: name, Keywords: []string{name}, Handler: echo(name)}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
	reg.Alias("kaçta", "saat")

	reg.ReplaceAliases(map[string]string{
		"son dakika": "haberler",
		"gündem":     "haberler",
	})

	// The old alias is gone.
	if m, ok := reg.Resolve("kaçta acaba"); ok {
		t.Errorf("old alias still resolves: %+v", m)
	}
	// The new ones work.
	if m, ok := reg.Resolve("son dakika var mı"); !ok || m.Name != "haberler" {
		t.Errorf("Resolve(son dakika var mı) = %+v, %v; want haberler", m, ok)
	}
	if m, ok := reg.Resolve("gündem nedir"); !ok || m.Name != "haberler" {
		t.Errorf("Resolve(gündem nedir) = %+v, %v; want haberler", m, ok)
	}
}

func TestReplaceAliases_DeterministicOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, name := range []string{"saat", "haberler"} {
		if err := reg.Register(Spec{Name: name, Keywords: []string{name}, Handler: echo(name)}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	// Both phrases occur in the utterance. Reloaded aliases resolve in
	// sorted phrase order, so "akşam olunca" must win every time.
	for range 20 {
		reg.ReplaceAliases(map[string]string{
			"bülteni oku":  "haberler",
			"akşam olunca": "saat",
		})
		m, ok := reg.Resolve("akşam olunca bülteni oku")
		if !ok {
			t.Fatal("Resolve found no match")
		}
		if m.Name != "saat" {
			t.Fatalf("resolved %q, want saat (sorted alias order)", m.Name)
		}
	}
}
