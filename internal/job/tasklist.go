package job

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gthreads/internal/sched"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	rootStyle   = lipgloss.NewStyle().Faint(true)

	stateStyles = map[sched.State]lipgloss.Style{
		sched.Running:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		sched.Ready:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		sched.Blocked:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		sched.Suspended: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	}
)

// RenderTaskList formats a task list snapshot, one row per task.
func RenderTaskList(tasks []sched.TaskInfo) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-3s %-*s %-10s %s", "ID", sched.MaxTaskName-1, "NAME", "STATE", "WAKE")))

	for _, t := range tasks {
		wake := "-"
		if t.Wake != 0 {
			wake = fmt.Sprintf("%dms", t.Wake)
		}
		name := fmt.Sprintf("%-*s", sched.MaxTaskName-1, t.Name)
		if t.Index == 0 {
			name = rootStyle.Render(name)
		}
		state := fmt.Sprintf("%-10s", t.State)
		if st, ok := stateStyles[t.State]; ok {
			state = st.Render(state)
		}

		b.WriteByte('\n')
		fmt.Fprintf(&b, "%-3d %s %s %s", t.Index, name, state, wake)
	}
	return b.String()
}
