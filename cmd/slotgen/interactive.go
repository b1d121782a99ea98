package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/slotbridge/slots"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))
)

const pageSize = 15

type modelState int

const (
	stateBrowse modelState = iota
	stateDetail
)

type interactiveModel struct {
	filter   textinput.Model
	entries  []slots.Entry
	visible  []slots.Entry
	selected int
	state    modelState
	st       styler
}

func newInteractiveModel() *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "method or slot name"
	ti.Prompt = "filter: "
	ti.Width = 40
	ti.Focus()

	m := &interactiveModel{
		filter:  ti,
		entries: slots.Catalog(),
		st:      newStyler(true),
	}
	m.applyFilter()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

// applyFilter keeps the entries whose method, slot or trait contains the
// filter text.
func (m *interactiveModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for _, e := range m.entries {
		if q == "" || matches(e, q) {
			m.visible = append(m.visible, e)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func matches(e slots.Entry, q string) bool {
	return strings.Contains(strings.ToLower(e.Method), q) ||
		strings.Contains(strings.ToLower(string(e.Slot)), q) ||
		strings.Contains(strings.ToLower(e.Trait), q)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.state == stateBrowse && len(m.visible) > 0 {
				m.state = stateDetail
				m.filter.Blur()
			} else if m.state == stateDetail {
				m.state = stateBrowse
				m.filter.Focus()
			}
			return m, nil

		case "esc":
			if m.state == stateDetail {
				m.state = stateBrowse
				m.filter.Focus()
				return m, nil
			}
			return m, tea.Quit
		}
	}

	if m.state != stateBrowse {
		return m, nil
	}
	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.selected = 0
		m.applyFilter()
	}
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Slot catalog"))
	b.WriteString(" ")
	b.WriteString(slots.CatalogVersion)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		if len(m.visible) == 0 {
			b.WriteString(errorStyle.Render("no protocol method matches"))
			b.WriteString("\n")
		}
		start := 0
		if m.selected >= pageSize {
			start = m.selected - pageSize + 1
		}
		end := min(start+pageSize, len(m.visible))
		for i := start; i < end; i++ {
			line := formatEntry(m.st, m.visible[i])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.visible[i].Method))
				b.WriteString(" ")
				b.WriteString(strings.TrimPrefix(line, m.st.render(funcStyle, m.visible[i].Method)))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%d/%d • ↑/↓ select • enter details • esc quit",
			len(m.visible), len(m.entries))))

	case stateDetail:
		b.WriteString(describeMethod(m.visible[m.selected].Method))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/esc back • ctrl+c quit"))
	}

	return b.String()
}

// describeMethod renders what the registry knows about a protocol method
// name.
func describeMethod(name string) string {
	var b strings.Builder
	if d, ok := slots.LookupSlot(name); ok {
		fmt.Fprintf(&b, "%s owns slot %s\n\n", funcStyle.Render(name), d.Slot)
		fmt.Fprintf(&b, "  fn type     %s\n", typeStyle.Render(d.FnType.Name))
		fmt.Fprintf(&b, "  arguments   %s\n", strings.Join(kindNames(d.Args), ", "))
		fmt.Fprintf(&b, "  result      %s\n", d.Ret)
		fmt.Fprintf(&b, "  errors      %s\n", d.ErrorMode)
		fmt.Fprintf(&b, "  return      %s\n", d.Return)
		if d.Hook != slots.HookNone {
			fmt.Fprintf(&b, "  hook        %s\n", d.Hook)
		}
		if d.Output != slots.OutputPlain {
			fmt.Fprintf(&b, "  output      %s\n", d.Output)
		}
		return resultStyle.Render(b.String())
	}
	if d, ok := slots.LookupFragment(name); ok {
		fmt.Fprintf(&b, "%s is the %s fragment %s of slot %s\n\n",
			funcStyle.Render(name), d.Role, d.Trait, d.Slot)
		if fp, ok := slots.OwnerFnType(d.Slot); ok {
			fmt.Fprintf(&b, "  fn type     %s\n", typeStyle.Render(fp.Name))
		}
		fmt.Fprintf(&b, "  arguments   %s\n", strings.Join(kindNames(d.Args), ", "))
		fmt.Fprintf(&b, "  result      %s\n", d.Ret)
		fmt.Fprintf(&b, "  errors      %s\n", d.ErrorMode)
		var siblings []string
		for _, f := range slots.FragmentsFor(d.Slot) {
			if f.Method != name {
				siblings = append(siblings, f.Method)
			}
		}
		if len(siblings) > 0 {
			fmt.Fprintf(&b, "  composed    %s\n", strings.Join(siblings, ", "))
		}
		return resultStyle.Render(b.String())
	}
	return errorStyle.Render(name + " is not a protocol method")
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
