package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"sunwell/internal/types"
)

// Renderer prints an events.Stream's AgentEvents to out as short,
// lipgloss-styled human-readable lines. It's a thin renderer, not a TUI:
// it owns no layout state and reacts to one event at a time, the way a
// tail -f view would, rather than redrawing a full-screen model.
type Renderer struct {
	out io.Writer

	label    lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
	fail     lipgloss.Style
	dim      lipgloss.Style
}

// NewRenderer returns a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:   out,
		label: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		fail:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Watch consumes ch until it closes, writing one styled line per event.
func (r *Renderer) Watch(ch <-chan types.AgentEvent) {
	for e := range ch {
		fmt.Fprintln(r.out, r.line(e))
	}
}

func (r *Renderer) line(e types.AgentEvent) string {
	tag := r.label.Render(string(e.Type))
	if e.WorkerTag != "" {
		tag = r.dim.Render("["+e.WorkerTag+"] ") + tag
	}
	switch e.Type {
	case types.EventPlanAbort, types.EventTaskFailed, types.EventGateFail,
		types.EventValidateError, types.EventFixFailed, types.EventWorkerFailed,
		types.EventEscalate, types.EventError:
		return tag + " " + r.fail.Render(summarize(e))
	case types.EventGateTimeout, types.EventPrefetchTimeout, types.EventMemoryDeadEnd:
		return tag + " " + r.warn.Render(summarize(e))
	case types.EventTaskComplete, types.EventGatePass, types.EventPlanWinner,
		types.EventWorkerComplete, types.EventComplete, types.EventBriefingSaved:
		return tag + " " + r.ok.Render(summarize(e))
	default:
		return tag + " " + r.dim.Render(summarize(e))
	}
}

func summarize(e types.AgentEvent) string {
	if len(e.Data) == 0 {
		return ""
	}
	b, err := json.Marshal(e.Data)
	if err != nil {
		return ""
	}
	return string(b)
}

// NDJSONWatch streams raw AgentEvent NDJSON to out until ch closes,
// implementing --json.
func NDJSONWatch(out io.Writer, ch <-chan types.AgentEvent) {
	enc := json.NewEncoder(out)
	for e := range ch {
		_ = enc.Encode(e)
	}
}
