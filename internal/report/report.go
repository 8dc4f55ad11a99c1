// Package report renders a finished plan for operators.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/mural/internal/scheduler"
)

// Summary colours
const (
	colorTitle   = "#7B2CBF"
	colorLabel   = "135"
	colorMuted   = "60"
	colorWarning = "#FF6347"
)

type vehicleTotals struct {
	vehicle        string
	requested      int
	allocated      int
	requestedScore float64
	allocatedScore float64
}

// RenderSummary renders the pass totals, per-vehicle totals, link runs
// and target outcomes of a plan.
func RenderSummary(p *scheduler.Plan) string {
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorTitle)).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorLabel)).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	var lines []string
	lines = append(lines, titleStyle.Render("Plan "+p.RunID))
	lines = append(lines, dimStyle.Render(fmt.Sprintf("%s  %d steps of %.0f s",
		p.Start.UTC().Format("2006-01-02T15:04:05Z"), p.NumberOfTimeSteps, p.SecondsPerTimeStep)))
	lines = append(lines, "")
	lines = append(lines, labelStyle.Render(fmt.Sprintf("%-10s", "Requested"))+
		fmt.Sprintf("%4d selections  score %.3f", len(p.Requested), p.RequestedScore()))
	lines = append(lines, labelStyle.Render(fmt.Sprintf("%-10s", "Allocated"))+
		fmt.Sprintf("%4d selections  score %.3f", len(p.Allocated), p.AllocatedScore()))
	if p.GatedSteps > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%d vehicle steps had no mission link", p.GatedSteps)))
	}

	if totals := byVehicle(p); len(totals) > 0 {
		lines = append(lines, "", labelStyle.Render("Vehicles"))
		for _, v := range totals {
			lines = append(lines, fmt.Sprintf("  %-12s requested %3d (%.3f)  allocated %3d (%.3f)",
				v.vehicle, v.requested, v.requestedScore, v.allocated, v.allocatedScore))
		}
	}

	if len(p.Links) > 0 {
		lines = append(lines, "", labelStyle.Render("Links"))
		for _, l := range p.Links {
			lines = append(lines, fmt.Sprintf("  %-28s steps %d-%d", l.Link, l.Start, l.End))
		}
	} else {
		lines = append(lines, "", dimStyle.Render("No links allocated"))
	}

	if len(p.Targets) > 0 {
		lines = append(lines, "", labelStyle.Render("Targets"))
		for _, t := range p.Targets {
			cps := dimStyle.Render("none")
			if t.BestCPS > 0 {
				cps = fmt.Sprintf("CPS %d", t.BestCPS)
			}
			lines = append(lines, fmt.Sprintf("  %-10s deck %d mission %d  %s  score %.3f",
				t.ID, t.Deck, t.Mission, cps, t.Score))
		}
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func byVehicle(p *scheduler.Plan) []vehicleTotals {
	idx := map[string]*vehicleTotals{}
	get := func(name string) *vehicleTotals {
		v, ok := idx[name]
		if !ok {
			v = &vehicleTotals{vehicle: name}
			idx[name] = v
		}
		return v
	}
	for _, s := range p.Requested {
		v := get(s.Vehicle)
		v.requested++
		v.requestedScore += s.Score
	}
	for _, s := range p.Allocated {
		v := get(s.Vehicle)
		v.allocated++
		v.allocatedScore += s.Score
	}
	out := make([]vehicleTotals, 0, len(idx))
	for _, v := range idx {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].vehicle < out[j].vehicle })
	return out
}

// WriteYAML writes the plan as a YAML document.
func WriteYAML(w io.Writer, p *scheduler.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}

// ReadYAML reads a plan written by WriteYAML.
func ReadYAML(r io.Reader) (*scheduler.Plan, error) {
	var p scheduler.Plan
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}

// SelectionLines renders one line per selection of a pass, for logs and
// diffs.
func SelectionLines(sel []scheduler.Selection) string {
	var b strings.Builder
	for _, s := range sel {
		crisis := ""
		if s.Crisis {
			crisis = " crisis"
		}
		fmt.Fprintf(&b, "%s t=%d %s %s/%s score=%.3f seconds=%.1f%s\n",
			s.Pass, s.TimeIndex, s.Vehicle, s.Region, s.Sensor, s.Score, s.Seconds, crisis)
	}
	return b.String()
}
