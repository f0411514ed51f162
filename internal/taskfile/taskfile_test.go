package taskfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTaskFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "crucible.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write task file: %v", err)
	}
	return path
}

func TestLoad_ResolvesLiteralAndHostEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CRUCIBLE_TEST_DB_PASSWORD", "s3cr3t")

	path := writeTaskFile(t, dir, `
name: demo
main: web
containers:
  - name: db
    image:
      image: postgres:16
    env:
      POSTGRES_PASSWORD:
        fromHost: CRUCIBLE_TEST_DB_PASSWORD
  - name: web
    image:
      image: myapp:1
    env:
      MODE: production
    dependsOn: [db]
`)

	task, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	idx := task.ByName()
	db := idx["db"]
	if got := db.Env["POSTGRES_PASSWORD"]; got.HostRef != "CRUCIBLE_TEST_DB_PASSWORD" {
		t.Fatalf("expected a host-ref env value, got %+v", got)
	}

	web := idx["web"]
	if got := web.Env["MODE"]; got.Literal != "production" {
		t.Fatalf("expected literal env value production, got %+v", got)
	}
}

func TestLoad_RejectsInvalidTask(t *testing.T) {
	dir := t.TempDir()
	path := writeTaskFile(t, dir, `
name: demo
main: ghost
containers:
  - name: web
    image:
      image: myapp:1
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an undeclared main container")
	}
}

func TestLoad_LoadsSiblingDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CRUCIBLE_TEST_FROM_DOTENV=hello\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	path := writeTaskFile(t, dir, `
name: demo
main: web
containers:
  - name: web
    image:
      image: myapp:1
    env:
      GREETING:
        fromHost: CRUCIBLE_TEST_FROM_DOTENV
`)

	if _, err := Load(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if os.Getenv("CRUCIBLE_TEST_FROM_DOTENV") != "hello" {
		t.Fatal("expected .env to have been loaded into the process environment")
	}
}
