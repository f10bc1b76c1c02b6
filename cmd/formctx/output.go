package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/render"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// report is the outcome of evaluating one form.
type report struct {
	Form       string                 `json:"form"`
	Mode       string                 `json:"mode"`
	Active     []string               `json:"active"`
	Fallback   bool                   `json:"fallback"`
	Valid      bool                   `json:"valid"`
	Violations []validation.Violation `json:"violations"`
	Server     *serverReport          `json:"server,omitempty"`
	Values     map[string]any         `json:"values"`
}

// serverReport carries errors a backend returned for the submitted values.
type serverReport struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// withServerErrors maps a backend error payload onto the active fields. Any
// server message makes the report invalid.
func (r *report) withServerErrors(c *form.Controller, payload map[string][]string) {
	mapping := render.MapErrorPayload(c.ActiveQualifiedFields(), payload)
	if mapping.Empty() {
		return
	}
	server := &serverReport{Form: render.MergeFormErrors(nil, mapping.Form...)}
	if len(mapping.Fields) > 0 {
		server.Fields = make(map[string][]string, len(mapping.Fields))
		for q, messages := range mapping.Fields {
			server.Fields[q.String()] = messages
		}
	}
	r.Server = server
	r.Valid = false
}

func newReport(id string, c *form.Controller) report {
	sel := c.Selection()
	violations := c.Errors()
	if violations == nil {
		violations = []validation.Violation{}
	}
	return report{
		Form:       id,
		Mode:       c.Mode(),
		Active:     sel.Contexts,
		Fallback:   sel.Fallback,
		Valid:      c.IsValid(),
		Violations: violations,
		Values:     c.Snapshot(),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReportTable(w io.Writer, r report) {
	status := text.FgGreen.Sprint("valid")
	if !r.Valid {
		status = text.FgRed.Sprint("invalid")
	}
	active := strings.Join(r.Active, ", ")
	if r.Fallback {
		active += text.FgYellow.Sprint(" (fallback)")
	}
	fmt.Fprintf(w, "Form:      %s\n", r.Form)
	fmt.Fprintf(w, "Mode:      %s\n", r.Mode)
	fmt.Fprintf(w, "Contexts:  %s\n", active)
	fmt.Fprintf(w, "Status:    %s\n", status)

	if len(r.Violations) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Field", "Code", "Message", "Blocking"})
		for _, v := range r.Violations {
			blocking := "yes"
			if v.Advisory {
				blocking = text.FgHiBlack.Sprint("advisory")
			}
			tw.AppendRow(table.Row{v.Field.String(), v.Code, v.Message, blocking})
		}
		tw.Render()
	}

	if r.Server != nil {
		writeServerTable(w, *r.Server)
	}

	if len(r.Values) > 0 {
		writeValuesTable(w, r.Values)
	}
}

func writeValuesTable(w io.Writer, values map[string]any) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, key := range keys {
		tw.AppendRow(table.Row{key, validation.ValueString(values[key])})
	}
	tw.Render()
}

func writeServerTable(w io.Writer, server serverReport) {
	fields := make([]string, 0, len(server.Fields))
	for name := range server.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Server errors")
	tw.AppendHeader(table.Row{"Field", "Message"})
	for _, name := range fields {
		for _, msg := range server.Fields[name] {
			tw.AppendRow(table.Row{name, text.FgRed.Sprint(msg)})
		}
	}
	for _, msg := range server.Form {
		tw.AppendRow(table.Row{text.FgHiBlack.Sprint("(form)"), text.FgRed.Sprint(msg)})
	}
	tw.Render()
}
