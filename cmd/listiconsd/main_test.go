package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/jonwraymond/listicons/config"
	"github.com/jonwraymond/listicons/observe"
)

const notchUUID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "listicons.toml")
	content := "[paths]\ndata_dir = " + quote(base) + "\n\n" +
		"[observe]\nlog_level = \"error\"\n\n" +
		"[admin]\napi_keys = [\"hunter2-admin-key\"]\n" + extra
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func quote(s string) string {
	return "'" + s + "'"
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func headPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 150, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode head: %v", err)
	}
	return buf.Bytes()
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "listicons.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2-admin-key") {
		t.Fatalf("api key leaked:\n%s", out)
	}
	requireContains(t, out, redacted)
	requireContains(t, out, env.baseDir)
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t, "\n[cache]\nmax_entries = -1\n")
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDirectoryCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, []string{"directory", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("directory list: %v", err)
	}
	requireContains(t, out, "No recorded players")

	out, _, err = runCLI(t, []string{"directory", "record", "--uuid", notchUUID, "--name", "Notch", "--address", "10.1.2.3:50000"}, env.configPath)
	if err != nil {
		t.Fatalf("directory record: %v", err)
	}
	requireContains(t, out, "Recorded Notch")

	out, _, err = runCLI(t, []string{"directory", "lookup", "10.1.2.3"}, env.configPath)
	if err != nil {
		t.Fatalf("directory lookup: %v", err)
	}
	requireContains(t, out, notchUUID)

	out, _, err = runCLI(t, []string{"directory", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("directory list: %v", err)
	}
	requireContains(t, out, "Notch")
	requireContains(t, out, "10.1.2.3")

	if _, _, err := runCLI(t, []string{"directory", "clear", "--uuid", notchUUID}, env.configPath); err != nil {
		t.Fatalf("directory clear: %v", err)
	}
	if _, _, err := runCLI(t, []string{"directory", "lookup", "10.1.2.3"}, env.configPath); err == nil {
		t.Fatal("expected lookup to fail after clear")
	}

	if _, _, err := runCLI(t, []string{"directory", "record", "--uuid", "bogus", "--address", "10.0.0.1"}, env.configPath); err == nil {
		t.Fatal("expected invalid uuid error")
	}
}

func TestRenderUsesStoredHead(t *testing.T) {
	env := setupCLITestEnv(t, "")
	head := headPNG(t)

	headsDir := filepath.Join(env.baseDir, "heads")
	if err := os.MkdirAll(headsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(headsDir, notchUUID+".png"), head, 0o644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(env.baseDir, "notch.png")
	_, errOut, err := runCLI(t, []string{"render", "--uuid", notchUUID, "--name", "Notch", "--out", target}, env.configPath)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	requireContains(t, errOut, "Wrote")

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, head) {
		t.Fatal("undecorated render should be the stored head")
	}
}

func TestServeRefusesSecondInstance(t *testing.T) {
	env := setupCLITestEnv(t, "")

	lock := flock.New(filepath.Join(env.baseDir, "listiconsd.lock"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer func() { _ = lock.Unlock() }()

	_, _, err = runCLI(t, []string{"serve", "--bind", "127.0.0.1:0"}, env.configPath)
	if err == nil {
		t.Fatal("expected serve to refuse while the lock is held")
	}
	requireContains(t, err.Error(), "already")
}

func TestReloadSignalReplacesDecorations(t *testing.T) {
	env := setupCLITestEnv(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, _, _, err := config.Load(ctx, env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	p, err := buildPipeline(ctx, cfg, observe.NopObserver())
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	if n := p.icons.Registry().Len(); n != 0 {
		t.Fatalf("initial decorations = %d, want 0", n)
	}

	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.WriteString("\n[[decorations]]\nname = \"vip\"\ntype = \"overlay\"\nimages = [\"vip.png\"]\n")
	_ = f.Close()
	if err != nil {
		t.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	go watchReload(ctx, sig, p, env.configPath, observe.NopLogger())
	sig <- syscall.SIGHUP

	deadline := time.Now().Add(2 * time.Second)
	for p.icons.Registry().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("decorations after reload = %d, want 1", p.icons.Registry().Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
