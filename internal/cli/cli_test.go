package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	root := New(&testWriter{t}, LogInfo).RootCommand()

	want := []string{"cache", "completion", "generate", "runs", "serve"}
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("subcommands = %v, want %v", got, want)
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			root := New(&testWriter{t}, LogInfo).RootCommand()
			var buf bytes.Buffer
			root.SetOut(&buf)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(buf.String(), appName) {
				t.Errorf("completion %s output does not mention %s", shell, appName)
			}
		})
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	root := New(&testWriter{t}, LogInfo).RootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("completion tcsh should fail")
	}
}
