package commands

import (
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd.Use != "dialog-agent" {
		t.Errorf("Use = %q, want %q", cmd.Use, "dialog-agent")
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("descriptions should not be empty")
	}

	want := map[string]bool{"serve": false, "ask": false, "keywords": false, "import": false, "forget": false, "version": false}
	for _, sub := range cmd.Commands() {
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

func TestRootCmd_GlobalFlags(t *testing.T) {
	cmd := NewRootCmd()

	tests := []struct {
		flagName string
		defValue string
	}{
		{"config", ""},
		{"log-level", ""},
		{"corpus", ""},
	}
	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("--%s flag not found", tt.flagName)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("--%s default = %q, want %q", tt.flagName, flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		cmd      string
		flagName string
		defValue string
	}{
		{"ask", "partner", ""},
		{"ask", "player", ""},
		{"ask", "json", "false"},
		{"keywords", "partner", "cli"},
		{"import", "dry-run", "false"},
		{"serve", "port", "0"},
	}
	root := NewRootCmd()
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flagName, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.cmd})
			if err != nil {
				t.Fatal(err)
			}
			flag := sub.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("--%s flag not found on %s", tt.flagName, tt.cmd)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("--%s default = %q, want %q", tt.flagName, flag.DefValue, tt.defValue)
			}
		})
	}
}
