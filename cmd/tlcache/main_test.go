package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaguanLabs/tlcache"
	"github.com/ZaguanLabs/tlcache/cache"
)

// clearEnv keeps the developer's TLCACHE_* settings out of the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"TLCACHE_ENABLED", "TLCACHE_STORE", "TLCACHE_REDIS_URL", "TLCACHE_SQLITE_PATH", "TLCACHE_PREFIX", "TLCACHE_CODEC"} {
		t.Setenv(name, "")
	}
}

// seedSQLite writes entries for the given locales under group "messages".
func seedSQLite(t *testing.T, path string, locales ...string) {
	t.Helper()
	ctx := context.Background()

	store, err := cache.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()

	repo, err := tlcache.NewRepository[tlcache.Lines](store, "translation")
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	for _, locale := range locales {
		if err := repo.Put(ctx, locale, "messages", "*", tlcache.Lines{"hello": locale}, 60); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
}

func sqliteHas(t *testing.T, path, locale string) bool {
	t.Helper()
	ctx := context.Background()

	store, err := cache.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer store.Close()

	repo, _ := tlcache.NewRepository[tlcache.Lines](store, "translation")
	has, err := repo.Has(ctx, locale, "messages", "*")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	return has
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--version"}, &stdout, &stderr)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "tlcache") {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_MissingCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{}, &stdout, &stderr)

	if err == nil {
		t.Fatal("expected error for missing command")
	}

	if !strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("expected usage on stderr, got: %s", stderr.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"purge"}, &stdout, &stderr)

	if err == nil || !strings.Contains(err.Error(), `unknown command "purge"`) {
		t.Errorf("expected unknown command error, got: %v", err)
	}
}

func TestRun_FlushDisabled(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	// The unreachable Redis URL proves no store is opened
	err := run([]string{"flush", "--enabled=false", "--redis-url", "redis://127.0.0.1:1/0"}, &stdout, &stderr)

	if err != nil {
		t.Fatalf("disabled flush should succeed, got: %v", err)
	}

	if strings.TrimSpace(stdout.String()) != "The translation cache is disabled." {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestRun_FlushDisabledFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TLCACHE_ENABLED", "false")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"flush", "--locale", "en", "--group", "messages"}, &stdout, &stderr); err != nil {
		t.Fatalf("disabled flush should succeed, got: %v", err)
	}

	if !strings.Contains(stdout.String(), "disabled") {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestRun_FlushAll(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en", "es")

	var stdout, stderr bytes.Buffer
	err := run([]string{"flush", "--store", "sqlite", "--sqlite-path", path}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("flush failed: %v (stderr: %s)", err, stderr.String())
	}

	if strings.TrimSpace(stdout.String()) != "All translation cache has been cleared." {
		t.Errorf("unexpected output: %q", stdout.String())
	}

	for _, locale := range []string{"en", "es"} {
		if sqliteHas(t, path, locale) {
			t.Errorf("%s should be flushed", locale)
		}
	}
}

func TestRun_FlushSingle(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en", "es")

	var stdout, stderr bytes.Buffer
	err := run([]string{"flush", "--store", "sqlite", "--sqlite-path", path, "--locale", "en", "--group", "messages"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if strings.TrimSpace(stdout.String()) != "Translation cache cleared for: en/messages/*" {
		t.Errorf("unexpected output: %q", stdout.String())
	}

	if sqliteHas(t, path, "en") {
		t.Error("en should be flushed")
	}
	if !sqliteHas(t, path, "es") {
		t.Error("es should be kept")
	}
}

func TestRun_FlushAllWithRate(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en", "es", "nl")

	var stdout, stderr bytes.Buffer
	err := run([]string{"flush", "--store", "sqlite", "--sqlite-path", path, "--rate", "1000"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if sqliteHas(t, path, "nl") {
		t.Error("nl should be flushed")
	}
}

func TestRun_FlushLocaleWithoutGroupFlushesAll(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en", "es")

	var stdout, stderr bytes.Buffer
	err := run([]string{"flush", "--store", "sqlite", "--sqlite-path", path, "--locale", "en"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "All translation cache has been cleared.") {
		t.Errorf("unexpected output: %q", stdout.String())
	}
	if sqliteHas(t, path, "es") {
		t.Error("es should be flushed too")
	}
}

func TestRun_FlushUsesEnvConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en")
	t.Setenv("TLCACHE_STORE", "sqlite")
	t.Setenv("TLCACHE_SQLITE_PATH", path)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"flush"}, &stdout, &stderr); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if sqliteHas(t, path, "en") {
		t.Error("en should be flushed")
	}
}

func TestRun_Keys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en", "es")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"keys", "--store", "sqlite", "--sqlite-path", path}, &stdout, &stderr); err != nil {
		t.Fatalf("keys failed: %v", err)
	}

	want := tlcache.DeriveKey("translation", "en", "messages", "*")
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 keys, got: %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), want) {
		t.Errorf("expected key %s in output: %s", want, stdout.String())
	}
}

func TestRun_ExportImport(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	snapshot := filepath.Join(dir, "cache.json")
	seedSQLite(t, src, "en", "nl")

	var stdout, stderr bytes.Buffer
	err := run([]string{"export", "--store", "sqlite", "--sqlite-path", src, "-o", snapshot}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(stderr.String(), "Exported 2 entries") {
		t.Errorf("expected export summary, got: %s", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	err = run([]string{"import", "--store", "sqlite", "--sqlite-path", dst, "--ttl", "5", snapshot}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Imported 2 entries (0 failed)") {
		t.Errorf("expected import summary, got: %s", stdout.String())
	}

	if !sqliteHas(t, dst, "nl") {
		t.Error("imported entry should be readable")
	}
}

func TestRun_ExportToStdoutQuiet(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cache.db")
	seedSQLite(t, path, "en")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"export", "--store", "sqlite", "--sqlite-path", path, "--quiet"}, &stdout, &stderr); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	if !strings.Contains(stdout.String(), `"version": "1.0"`) {
		t.Errorf("expected JSON snapshot on stdout, got: %s", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("quiet export should not print a summary, got: %s", stderr.String())
	}
}

func TestRun_ImportRequiresFile(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"import", "--store", "memory"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "import file is required") {
		t.Errorf("expected missing file error, got: %v", err)
	}
}

func TestRun_UnknownStore(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"flush", "--store", "memcached"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown store "memcached"`) {
		t.Errorf("expected unknown store error, got: %v", err)
	}
}

func TestRun_FlushMemoryStore(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"flush", "--store", "memory"}, &stdout, &stderr); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "All translation cache has been cleared.") {
		t.Errorf("unexpected output: %q", stdout.String())
	}
}

func TestRun_ImportFlagsAfterFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	snapshot := filepath.Join(dir, "cache.json")
	seedSQLite(t, src, "en")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"export", "--store", "sqlite", "--sqlite-path", src, "-o", snapshot}, &stdout, &stderr); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	stdout.Reset()
	err := run([]string{"import", snapshot, "--ttl", "5", "--store", "sqlite", "--sqlite-path", dst}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("import failed: %v (stderr: %s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Imported 1 entries (0 failed)") {
		t.Errorf("expected import summary, got: %s", stdout.String())
	}
	if !sqliteHas(t, dst, "en") {
		t.Error("imported entry should be readable")
	}
}

func TestRun_ImportRejectsExtraArguments(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"import", "--store", "memory", "a.json", "b.json"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unexpected arguments: b.json") {
		t.Errorf("expected extra argument error, got: %v", err)
	}
}

func TestRun_GetWithCodec(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := cache.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	repo, _ := tlcache.NewRepository[tlcache.Lines](store, "translation", tlcache.WithCodec(tlcache.MsgpackCodec{}))
	if err := repo.Put(ctx, "nl", "messages", "*", tlcache.Lines{"hello": "Hallo"}, 60); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	store.Close()

	args := []string{"get", "--store", "sqlite", "--sqlite-path", path, "--locale", "nl", "--group", "messages"}

	var stdout, stderr bytes.Buffer
	if err := run(append(args, "--codec", "msgpack"), &stdout, &stderr); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !strings.Contains(stdout.String(), `"hello": "Hallo"`) {
		t.Errorf("expected decoded entry, got: %s", stdout.String())
	}

	// The JSON codec cannot read a msgpack payload
	stdout.Reset()
	if err := run(args, &stdout, &stderr); err == nil {
		t.Error("expected decode error with the default codec")
	}
}

func TestRun_GetMissingEntry(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"get", "--store", "memory", "--locale", "en", "--group", "messages"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no cached entry for en/messages/*") {
		t.Errorf("expected missing entry error, got: %v", err)
	}
}

func TestRun_UnknownCodec(t *testing.T) {
	clearEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"flush", "--store", "memory", "--codec", "gob"}, &stdout, &stderr)
	if !tlcache.IsInvalidArgument(err) {
		t.Errorf("expected invalid codec error, got: %v", err)
	}
}
