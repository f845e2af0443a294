package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRunVersion(t *testing.T) {
	c := &cobra.Command{}
	var buf bytes.Buffer
	c.SetOut(&buf)

	if err := runVersion(c); err != nil {
		t.Fatalf("runVersion: %v", err)
	}
	if !strings.Contains(buf.String(), "Asha") {
		t.Errorf("output missing version line:\n%s", buf.String())
	}
}

func TestRootHasSubcommands(t *testing.T) {
	want := []string{"ask", "chat", "serve", "index", "version"}
	for _, name := range want {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing %q subcommand", name)
		}
	}
}
