package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sunteam/sun/internal/testutil"
)

func TestRootCommandHelp(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, sub := range []string{"daemon", "checkconfig", "version", "init", "completion"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"sun", "commit:", "built:", "go:", "os/arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q", want)
		}
	}
}

func TestInitAndCheckConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sun.toml")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"init", "-o", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("init did not write config: %v", err)
	}

	buf.Reset()
	rootCmd.SetArgs([]string{"checkconfig", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("generated config does not validate: %v", err)
	}
	if !strings.Contains(buf.String(), "OK") {
		t.Errorf("checkconfig output = %q", buf.String())
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "sun.toml", "error_icon = \"x\"\n")

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"init", "-o", path})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("init overwrote an existing file without --force")
	}
}

func TestUnknownSubcommand(t *testing.T) {
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"nonexistent"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
}
