package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nightwatch-astro/nightwatch/internal/config"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect configured agent profiles",
	}
	cmd.AddCommand(agentListCmd())
	return cmd
}

func agentListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured agent profiles",
		Run: func(cmd *cobra.Command, args []string) {
			runAgentList(jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

type agentListEntry struct {
	ID        string `json:"id"`
	Model     string `json:"model"`
	IsDefault bool   `json:"isDefault"`
}

func runAgentList(jsonOutput bool) {
	cfg := loadConfigOrExit()

	defaultID := cfg.Agents.DefaultID
	if defaultID == "" {
		defaultID = config.DefaultAgentID
	}

	entries := []agentListEntry{{
		ID:        config.DefaultAgentID,
		Model:     cfg.ResolveAgent(config.DefaultAgentID).Model,
		IsDefault: defaultID == config.DefaultAgentID,
	}}

	ids := make([]string, 0, len(cfg.Agents.List))
	for id := range cfg.Agents.List {
		if id == config.DefaultAgentID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entries = append(entries, agentListEntry{
			ID:        id,
			Model:     cfg.ResolveAgent(id).Model,
			IsDefault: id == defaultID,
		})
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tDEFAULT")
	for _, e := range entries {
		def := ""
		if e.IsDefault {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Model, def)
	}
	w.Flush()
}
