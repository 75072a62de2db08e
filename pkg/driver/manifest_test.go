package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: hello-world
version: "0.1.0"
targets:
  app: src/main.plc
  loop-demo:
    main: examples/loop.plc
  remote:
    main: programs/fact.plc
    git: https://example.com/programs.git
    tag: v1.0.0
builtins: [print, range]
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if got, want := manifest.Name, "hello_world"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
	if manifest.Version != "0.1.0" {
		t.Fatalf("Version = %q, want 0.1.0", manifest.Version)
	}
	if got := strings.Join(manifest.TargetOrder, ","); got != "app,loop_demo,remote" {
		t.Fatalf("TargetOrder = %s", got)
	}

	app := manifest.Targets["app"]
	if app == nil || app.Main != "src/main.plc" || app.Git != nil {
		t.Fatalf("app target not parsed: %#v", app)
	}
	remote := manifest.Targets["remote"]
	if remote == nil || remote.Git == nil {
		t.Fatalf("remote target not parsed: %#v", remote)
	}
	if remote.Git.URL != "https://example.com/programs.git" || remote.Git.Tag != "v1.0.0" {
		t.Fatalf("remote git ref unexpected: %#v", remote.Git)
	}
	if got := remote.Git.Describe(); got != "tag v1.0.0" {
		t.Fatalf("Describe = %q", got)
	}
	if got := strings.Join(manifest.Builtins, ","); got != "print,range" {
		t.Fatalf("Builtins = %s", got)
	}

	mainPath, err := manifest.MainPath(app)
	if err != nil {
		t.Fatalf("MainPath: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "src", "main.plc"); mainPath != want {
		t.Fatalf("MainPath = %q, want %q", mainPath, want)
	}
	if _, err := manifest.MainPath(remote); err == nil {
		t.Fatalf("expected MainPath to refuse git targets")
	}
}

func TestLoadManifestValidation(t *testing.T) {
	path := writeManifest(t, `
version: 1.0.0
targets:
  a-b: one.plc
  a_b: two.plc
  nomain:
    git: https://example.com/x.git
  pinned-twice:
    main: x.plc
    git: https://example.com/x.git
    rev: abc
    branch: main
  no-url:
    main: y.plc
    tag: v1
builtins: [print, print, exec]
`)

	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"name must be provided",
		`targets "a-b" and "a_b" collide after sanitization`,
		`target "nomain" requires a main entrypoint`,
		"targets.nomain: git targets require exactly one of rev, tag, or branch",
		"targets.pinned-twice: git targets require exactly one of rev, tag, or branch",
		"targets.no-url: rev, tag and branch require a git source",
		`builtins: "print" listed more than once`,
		`builtins: unknown builtin "exec"`,
	}
	if len(verr.Issues) != len(want) {
		t.Fatalf("issues = %#v", verr.Issues)
	}
	for i := range want {
		if verr.Issues[i] != want[i] {
			t.Fatalf("issue %d = %q, want %q", i, verr.Issues[i], want[i])
		}
	}
	if !strings.HasPrefix(err.Error(), "manifest validation failed:\n- ") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestLoadManifestRequiresTargets(t *testing.T) {
	path := writeManifest(t, `
name: empty
`)
	_, err := LoadManifest(path)
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Issues) != 1 || verr.Issues[0] != "at least one target must be defined" {
		t.Fatalf("expected missing targets issue, got %v", err)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	cases := map[string]string{
		"top level": "name: x\ntargets:\n  app: a.plc\ndependencies: {}\n",
		"target":    "name: x\ntargets:\n  app:\n    main: a.plc\n    entry: b.plc\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeManifest(t, contents)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatalf("expected unknown field error")
			}
			if !strings.Contains(err.Error(), "not found") {
				t.Fatalf("expected unknown field error, got %v", err)
			}
		})
	}
}

func TestLoadManifestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFileName)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadManifest(path)
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty manifest error, got %v", err)
	}
}

func TestManifestDefaultAndFindTarget(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  first-app: a.plc
  second: b.plc
`)
	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	target, err := manifest.DefaultTarget()
	if err != nil || target.OriginalName != "first-app" {
		t.Fatalf("DefaultTarget = %#v, %v", target, err)
	}
	for _, name := range []string{"first-app", "first_app", "FIRST-APP"} {
		if got, ok := manifest.FindTarget(name); !ok || got.Name != "first_app" {
			t.Fatalf("FindTarget(%q) = %#v, %v", name, got, ok)
		}
	}
	if _, ok := manifest.FindTarget("missing"); ok {
		t.Fatalf("expected missing target lookup to fail")
	}

	var nilManifest *Manifest
	if _, err := nilManifest.DefaultTarget(); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	manifestPath := filepath.Join(root, ManifestFileName)
	writeFile(t, manifestPath, "name: walk\ntargets:\n  app: src/main.plc")
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(nested, "main.plc")
	writeFile(t, file, "DEF main() DO END")

	for _, start := range []string{nested, file, root} {
		got, err := FindManifest(start)
		if err != nil {
			t.Fatalf("FindManifest(%s): %v", start, err)
		}
		if got != manifestPath {
			t.Fatalf("FindManifest(%s) = %s, want %s", start, got, manifestPath)
		}
	}
}

func TestFindManifestNotFound(t *testing.T) {
	_, err := FindManifest(t.TempDir())
	if !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}
