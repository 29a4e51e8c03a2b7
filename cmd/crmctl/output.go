package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/service"
)

type scanView struct {
	ScanID      string      `yaml:"scan_id"`
	EntityType  string      `yaml:"entity_type"`
	Sensitivity string      `yaml:"sensitivity"`
	Threshold   float64     `yaml:"threshold"`
	Records     int         `yaml:"records"`
	Groups      []groupView `yaml:"groups"`
}

type groupView struct {
	ID              int      `yaml:"id"`
	Score           float64  `yaml:"score"`
	SuggestedMaster string   `yaml:"suggested_master"`
	Records         []string `yaml:"records"`
}

type planView struct {
	Applied    bool              `yaml:"applied"`
	EntityType string            `yaml:"entity_type"`
	Master     string            `yaml:"master"`
	Duplicates []string          `yaml:"duplicates"`
	Fields     map[string]string `yaml:"fields"`
	Conflicts  []conflictView    `yaml:"conflicts,omitempty"`
}

type conflictView struct {
	Field   string `yaml:"field"`
	Kept    string `yaml:"kept"`
	Dropped string `yaml:"dropped"`
	From    string `yaml:"from"`
}

func newScanView(r *service.ScanResult) scanView {
	v := scanView{
		ScanID:      r.ScanID,
		EntityType:  string(r.EntityType),
		Sensitivity: string(r.Sensitivity),
		Threshold:   r.Threshold,
		Records:     r.RecordCount,
		Groups:      make([]groupView, 0, len(r.Groups)),
	}
	for _, g := range r.Groups {
		v.Groups = append(v.Groups, groupView{
			ID:              g.ID,
			Score:           g.Score,
			SuggestedMaster: g.SuggestedMasterID,
			Records:         g.RecordIDs,
		})
	}
	return v
}

func newPlanView(p *dedupe.MergePlan, applied bool) planView {
	v := planView{
		Applied:    applied,
		EntityType: string(p.EntityType),
		Master:     p.MasterID,
		Duplicates: p.DuplicateIDs,
		Fields:     p.Fields,
	}
	for _, c := range p.Conflicts {
		v.Conflicts = append(v.Conflicts, conflictView{
			Field:   c.Field,
			Kept:    c.KeptValue,
			Dropped: c.DroppedValue,
			From:    c.DroppedFrom,
		})
	}
	return v
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func printScan(w io.Writer, r *service.ScanResult) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	if len(r.Groups) == 0 {
		fmt.Fprintf(w, "%s No duplicates among %d %s records (sensitivity %s)\n",
			green("✓"), r.RecordCount, r.EntityType, r.Sensitivity)
		return
	}

	fmt.Fprintf(w, "%s Found %d duplicate group(s) among %d %s records (sensitivity %s, threshold %.2f)\n\n",
		yellow("⚠"), len(r.Groups), r.RecordCount, r.EntityType, r.Sensitivity, r.Threshold)

	for _, g := range r.Groups {
		fmt.Fprintf(w, "%s score %.2f\n", bold(fmt.Sprintf("Group %d", g.ID)), g.Score)
		for _, id := range g.RecordIDs {
			marker := " "
			if id == g.SuggestedMasterID {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s\n", marker, cyan(id))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "* suggested master")
}

func printPlan(w io.Writer, p *dedupe.MergePlan, applied bool) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if applied {
		fmt.Fprintf(w, "%s Merged %d record(s) into %s\n", green("✓"), len(p.DuplicateIDs), cyan(p.MasterID))
	} else {
		fmt.Fprintf(w, "Merge preview for %s %s (%s)\n", p.EntityType, cyan(p.MasterID), strings.Join(p.DuplicateIDs, ", "))
	}

	fields := make([]string, 0, len(p.Fields))
	for f := range p.Fields {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s (from %s)\n", f, p.Fields[f], p.FieldSources[f])
	}

	for _, c := range p.Conflicts {
		fmt.Fprintf(w, "  %s %s: dropping %q from %s\n", red("✗"), c.Field, c.DroppedValue, c.DroppedFrom)
	}

	if !applied {
		fmt.Fprintln(w, "\nRun again with --apply to persist.")
	}
}
