package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/slotbridge/abi"
	"github.com/wippyai/slotbridge/decl"
	"github.com/wippyai/slotbridge/slots"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// styler renders through lipgloss only when writing to a terminal.
type styler struct {
	color bool
}

func newStyler(color bool) styler {
	return styler{color: color}
}

func (s styler) render(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return term.IsTerminal(int(fd)) || isatty.IsCygwinTerminal(fd)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// catalogEntry is the YAML shape of one catalog row.
type catalogEntry struct {
	Method    string   `yaml:"method"`
	Category  string   `yaml:"category"`
	Slot      string   `yaml:"slot"`
	FnType    string   `yaml:"fn_type"`
	Trait     string   `yaml:"trait,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	Ret       string   `yaml:"ret"`
	ErrorMode string   `yaml:"error_mode"`
	Return    string   `yaml:"return,omitempty"`
}

func catalogDoc(entries []slots.Entry) []catalogEntry {
	out := make([]catalogEntry, len(entries))
	for i, e := range entries {
		ce := catalogEntry{
			Method:    e.Method,
			Category:  e.Category.String(),
			Slot:      string(e.Slot),
			FnType:    e.FnType,
			Trait:     e.Trait,
			Args:      kindNames(e.Args),
			Ret:       e.Ret.String(),
			ErrorMode: e.ErrorMode.String(),
		}
		if e.Category == slots.CategorySlot {
			ce.Return = e.Return.String()
		}
		out[i] = ce
	}
	return out
}

func kindNames(kinds []abi.Kind) []string {
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}

func renderCatalog(w io.Writer, st styler, entries []slots.Entry) {
	fmt.Fprintf(w, "%s %d protocol methods (catalog %s)\n\n",
		st.render(titleStyle, "Slot catalog"), len(entries), slots.CatalogVersion)
	for _, e := range entries {
		fmt.Fprintln(w, "  "+formatEntry(st, e))
	}
}

func formatEntry(st styler, e slots.Entry) string {
	sig := st.render(funcStyle, e.Method) +
		"(" + st.render(typeStyle, strings.Join(kindNames(e.Args), ", ")) + ") -> " +
		st.render(typeStyle, e.Ret.String())
	where := st.render(slotStyle, string(e.Slot)) + " " + e.FnType
	if e.Category == slots.CategoryFragment {
		where += " fragment " + e.Trait
	}
	return sig + "  " + where
}

func renderReport(w io.Writer, st styler, r *decl.Report) {
	fmt.Fprintf(w, "%s %s (catalog %s)\n", st.render(titleStyle, "Plan"), r.Path, r.Catalog)
	for _, c := range r.Classes {
		fmt.Fprintf(w, "\nclass %s\n", st.render(funcStyle, c.Name))
		for _, f := range c.Fields {
			access := "get"
			switch {
			case f.Get && f.Set:
				access = "get/set"
			case f.Set:
				access = "set"
			}
			fmt.Fprintf(w, "  field  %s <- %s [%s]\n", f.Name, f.Target, access)
		}
		for _, m := range c.Methods {
			fmt.Fprintf(w, "  %-6s %s\n", shortCategory(m.Category), formatMethod(st, m))
		}
		if len(c.Fields) == 0 && len(c.Methods) == 0 {
			fmt.Fprintln(w, "  "+st.render(helpStyle, "(no declarations planned)"))
		}
	}
}

func shortCategory(c string) string {
	switch c {
	case "ordinary":
		return "method"
	case "fragment":
		return "frag"
	}
	return c
}

func formatMethod(st styler, m decl.MethodPlan) string {
	var args []string
	for _, a := range m.Args {
		args = append(args, a.Name+": "+st.render(typeStyle, a.Type)+" ("+a.Extract+")")
	}
	out := st.render(funcStyle, m.Name) + "(" + strings.Join(args, ", ") + ")"
	if len(m.Results) > 0 {
		out += " -> " + st.render(typeStyle, strings.Join(m.Results, ", "))
	}
	switch {
	case m.Fragment != "":
		out += "  " + st.render(slotStyle, m.Slot) + " " + m.Fragment + "/" + m.Role
	case m.Slot != "":
		out += "  " + st.render(slotStyle, m.Slot) + " " + m.FnType
		if m.Return == slots.ReturnReceiver.String() {
			out += " returns self"
		}
	default:
		out += "  " + m.Kind
	}
	if m.Fallible {
		out += " " + st.render(errorStyle, "fallible")
	}
	return out
}
