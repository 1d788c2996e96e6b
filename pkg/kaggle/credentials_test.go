package kaggle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCreds(t *testing.T, dir, user string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	data := `{"username":"` + user + `","key":"k-` + user + `"}`
	if err := os.WriteFile(filepath.Join(dir, "kaggle.json"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindCredentialsOrder(t *testing.T) {
	work := t.TempDir()
	conf := t.TempDir()
	home := t.TempDir()
	env := map[string]string{"KAGGLE_CONFIG_DIR": conf}
	l := Lookup{WorkDir: work, HomeDir: home, Getenv: func(k string) string { return env[k] }}

	if _, err := l.Find(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}

	writeCreds(t, filepath.Join(home, ".kaggle"), "home")
	if c, err := l.Find(); err != nil || c.Username != "home" {
		t.Fatalf("got %+v, %v", c, err)
	}

	writeCreds(t, conf, "config")
	if c, err := l.Find(); err != nil || c.Username != "config" {
		t.Fatalf("got %+v, %v", c, err)
	}

	writeCreds(t, work, "local")
	c, err := l.Find()
	if err != nil || c.Username != "local" || c.Source != filepath.Join(work, "kaggle.json") {
		t.Fatalf("got %+v, %v", c, err)
	}

	env["KAGGLE_USERNAME"] = "envuser"
	env["KAGGLE_KEY"] = "envkey"
	c, err = l.Find()
	if err != nil || c.Username != "envuser" || c.Source != "environment" {
		t.Fatalf("environment should win, got %+v, %v", c, err)
	}
}

func TestLoadCredentialsIncomplete(t *testing.T) {
	p := filepath.Join(t.TempDir(), "kaggle.json")
	if err := os.WriteFile(p, []byte(`{"username":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCredentials(p); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestMetadataInjectDescription(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "meta.json")
	descPath := filepath.Join(dir, "desc.md")
	_ = os.WriteFile(metaPath, []byte(`{"title":"T","id":"me/anime","licenses":[{"name":"CC0-1.0"}],"description":"old"}`), 0o644)
	_ = os.WriteFile(descPath, []byte("# New description\n"), 0o644)

	m, err := LoadMetadata(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.InjectDescription(descPath); err != nil {
		t.Fatal(err)
	}
	if m.Description != "# New description\n" {
		t.Fatalf("description = %q", m.Description)
	}
	owner, slug, err := m.OwnerSlug()
	if err != nil || owner != "me" || slug != "anime" {
		t.Fatalf("owner=%s slug=%s err=%v", owner, slug, err)
	}
	if err := (Metadata{ID: "me/anime"}).Validate(); err == nil {
		t.Fatal("metadata without title should be invalid")
	}
}
