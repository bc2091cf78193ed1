package manifestfiles

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListManifests(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "apps/nginx.yaml", "kind: Application\n")
	writeFile(t, root, "apps/redis.yml", "kind: Application\n")
	writeFile(t, root, "README.md", "docs\n")
	writeFile(t, root, "scripts/deploy.sh", "#!/bin/sh\n")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, ".git/objects/pack.yaml", "not a manifest\n")

	a := New(root, discard())
	paths, err := a.ListManifests(context.Background())
	if err != nil {
		t.Fatalf("ListManifests: %v", err)
	}

	want := []string{"apps/nginx.yaml", "apps/redis.yml"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestReadWriteManifest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "apps/nginx.yaml", "targetRevision: 15.9.0\n")

	a := New(root, discard())
	ctx := context.Background()

	content, err := a.ReadManifest(ctx, "apps/nginx.yaml")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if content != "targetRevision: 15.9.0\n" {
		t.Errorf("content = %q", content)
	}

	if err := a.WriteManifest(ctx, "apps/nginx.yaml", "targetRevision: 16.0.0\n"); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	content, err = a.ReadManifest(ctx, "apps/nginx.yaml")
	if err != nil {
		t.Fatalf("ReadManifest after write: %v", err)
	}
	if content != "targetRevision: 16.0.0\n" {
		t.Errorf("content after write = %q", content)
	}
}

func TestResolve_RejectsEscapes(t *testing.T) {
	t.Parallel()

	a := New(t.TempDir(), discard())
	ctx := context.Background()

	for _, path := range []string{"../outside.yaml", "apps/../../outside.yaml"} {
		if _, err := a.ReadManifest(ctx, path); err == nil {
			t.Errorf("ReadManifest(%q) succeeded, want escape error", path)
		}
		if err := a.WriteManifest(ctx, path, "x"); err == nil {
			t.Errorf("WriteManifest(%q) succeeded, want escape error", path)
		}
	}
}

func TestReadManifest_Missing(t *testing.T) {
	t.Parallel()

	a := New(t.TempDir(), discard())
	if _, err := a.ReadManifest(context.Background(), "apps/missing.yaml"); err == nil {
		t.Error("expected error for missing manifest")
	}
}
