package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nightwatch-astro/nightwatch/internal/catalog"
	"github.com/nightwatch-astro/nightwatch/internal/tools"
)

func toolsCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		Run: func(cmd *cobra.Command, args []string) {
			runToolsList(jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

type toolListEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required,omitempty"`
}

func runToolsList(jsonOutput bool) {
	reg := tools.NewRegistry()
	reg.MustRegister(tools.NewGreetTool())
	reg.MustRegister(tools.NewCurrentTimeTool(""))
	reg.MustRegister(tools.NewToUTCTool(""))
	reg.MustRegister(tools.NewEquipmentTool())
	// search_dso is listed without a live catalog store.
	reg.MustRegister(tools.NewDSOTool(nil, catalog.Observer{}))

	entries := make([]toolListEntry, 0, reg.Count())
	for _, t := range reg.List() {
		e := toolListEntry{Name: t.Name(), Description: t.Description()}
		if s := t.Parameters(); s != nil {
			e.Required = s.Required
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if jsonOutput {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREQUIRED\tDESCRIPTION")
	for _, e := range entries {
		req := ""
		if len(e.Required) > 0 {
			req = fmt.Sprint(e.Required)
		}
		desc := e.Description
		if len(desc) > 72 {
			desc = desc[:69] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, req, desc)
	}
	w.Flush()
}
