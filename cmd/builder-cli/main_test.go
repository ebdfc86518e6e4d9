package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"go-site-builder/internal/auth"
	"go-site-builder/internal/model"
	"go-site-builder/internal/projectmanager"
)

// writeConfig points the CLI at a JSON store inside a temp directory.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := "storage:\n  driver: json\n  path: " + filepath.Join(dir, "data") + "\n" +
		"log:\n  level: error\n" +
		"auth:\n  jwt_secret: cli-test-secret\n"
	path := filepath.Join(dir, "sitebuilder.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath, "--user", "alice"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, configPath string, args ...string) string {
	t.Helper()
	out, err := run(t, configPath, args...)
	if err != nil {
		t.Fatalf("%v: %v (output %q)", args, err, out)
	}
	return strings.TrimSpace(out)
}

var createdID = regexp.MustCompile(`\(([^)]+)\)`)

func TestCLI_EditAndExport(t *testing.T) {
	cfg, dir := writeConfig(t)

	out := mustRun(t, cfg, "projects", "create", "Shop Front", "--description", "demo")
	m := createdID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no project id in %q", out)
	}
	projectID := m[1]

	var p model.Project
	if err := json.Unmarshal([]byte(mustRun(t, cfg, "projects", "show", projectID)), &p); err != nil {
		t.Fatal(err)
	}
	home := p.Pages[0].ID

	box := mustRun(t, cfg, "components", "add", projectID, home, "container")
	text := mustRun(t, cfg, "components", "add", projectID, home, "text", "--parent", box, "--props", `{"text":"hi"}`)
	mustRun(t, cfg, "components", "update", projectID, home, text, "--props", `{"text":"hello"}`)
	mustRun(t, cfg, "components", "move", projectID, home, text, "--index", "0")
	mustRun(t, cfg, "pages", "add", projectID, "About", "--path", "/about")

	if err := json.Unmarshal([]byte(mustRun(t, cfg, "projects", "show", projectID)), &p); err != nil {
		t.Fatal(err)
	}
	roots := p.Pages[0].Components
	if len(p.Pages) != 2 || len(roots) != 2 || roots[0].ID != text || roots[0].Props["text"] != "hello" {
		t.Fatalf("unexpected project after edits: %+v", p.Pages)
	}

	_, err := run(t, cfg, "components", "move", projectID, home, box, "--parent", box)
	if !errors.Is(err, projectmanager.ErrSelfParent) {
		t.Errorf("self move error = %v, want ErrSelfParent", err)
	}

	if html := mustRun(t, cfg, "preview", projectID, home); !strings.Contains(html, ">hello</p>") {
		t.Errorf("preview lacks text:\n%s", html)
	}

	out = mustRun(t, cfg, "export", projectID, "--out", filepath.Join(dir, "sites"))
	for _, f := range []string{"site.json", "pages/index.json", "pages/about.json"} {
		if _, err := os.Stat(filepath.Join(dir, "sites", "shop-front", f)); err != nil {
			t.Errorf("export missing %s: %v (output %q)", f, err, out)
		}
	}

	if list := mustRun(t, cfg, "projects", "list"); !strings.Contains(list, projectID) {
		t.Errorf("list does not show project:\n%s", list)
	}
	mustRun(t, cfg, "projects", "delete", projectID)
	if _, err := run(t, cfg, "projects", "show", projectID); !errors.Is(err, projectmanager.ErrProjectNotFound) {
		t.Errorf("show after delete error = %v", err)
	}
}

func TestCLI_TokenIssue(t *testing.T) {
	cfg, _ := writeConfig(t)
	tok := mustRun(t, cfg, "token", "issue", "--email", "alice@example.com")

	v, err := auth.NewVerifier([]byte("cli-test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	u, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if u.ID != "alice" || u.Email != "alice@example.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestCLI_Catalog(t *testing.T) {
	cfg, _ := writeConfig(t)
	if out := mustRun(t, cfg, "templates"); !strings.Contains(out, "blog") {
		t.Errorf("templates output lacks blog:\n%s", out)
	}
	if out := mustRun(t, cfg, "library"); !strings.Contains(out, "button") {
		t.Errorf("library output lacks button:\n%s", out)
	}
}
