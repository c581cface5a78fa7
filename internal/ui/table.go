package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

type tableController interface {
	NextColumn()
	PrevColumn()
	JumpToColumn(number int) bool
	SortActiveColumn(desc bool)
	HideActiveColumn() bool
	ShowAllColumns()
	FilterBySelectedValue() bool
	ClearFilter() bool
	TableMeta() string
	Prefs() TablePrefs
}

const columnSeparator = " "

func tableSeparatorWidth() int {
	return lipgloss.Width(columnSeparator)
}

func formatHeaderLabel(label string) string {
	return strings.ToUpper(label)
}

func renderActiveHeaderLabel(label string) string {
	return "[" + label + "]"
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).MaxWidth(widths[i]).Render(cell))
	}
	return strings.Join(parts, columnSeparator)
}

func renderTableDivider(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w)
	}
	return TableDividerStyle.Render(strings.Join(parts, columnSeparator))
}

func renderFormField(label string, input textinput.Model, focused, disabled bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}
	labelStyle := LabelStyle
	if disabled {
		labelStyle = DisabledLabelStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		labelStyle.Render(label),
		input.View(),
	)

	return style.Render(field)
}

func renderField(label, value string) string {
	if value == "" {
		value = "—"
	}
	return LabelStyle.Render(label+":") + " " + NormalRowStyle.Render(value)
}
