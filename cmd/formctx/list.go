package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formctx/pkg/form"
)

type formSummary struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Mode     string   `json:"mode"`
	Contexts []string `json:"contexts"`
	Active   []string `json:"active"`
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := a.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			var summaries []formSummary
			for _, e := range cat.sorted() {
				c, err := e.build(environment{}, form.WithLogger(a.logger))
				if err != nil {
					return fmt.Errorf("build form %q: %w", e.ID, err)
				}
				summaries = append(summaries, formSummary{
					ID:       e.ID,
					Source:   e.Source,
					Mode:     c.Mode(),
					Contexts: c.Store().Contexts(),
					Active:   c.ActiveContexts(),
				})
			}

			if a.output == outputJSON {
				return writeJSON(a.stdout, summaries)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(a.stdout)
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Form", "Source", "Mode", "Contexts", "Active"})
			for _, s := range summaries {
				tw.AppendRow(table.Row{s.ID, s.Source, s.Mode, len(s.Contexts), strings.Join(s.Active, ", ")})
			}
			tw.Render()
			return nil
		},
	}
}
