package cmd

import (
	"testing"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	t.Parallel()

	want := map[string]bool{
		"serve":   false,
		"version": false,
	}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmdDescriptions(t *testing.T) {
	t.Parallel()

	if rootCmd.Use != "concierge" {
		t.Errorf("Use = %q, want %q", rootCmd.Use, "concierge")
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty Short description")
	}
	if rootCmd.Long == "" {
		t.Error("expected non-empty Long description")
	}
}
