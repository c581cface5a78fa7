package ui

import (
	"strings"

	"bookman/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(screen model.Screen, mode model.Mode, width int) string {
	if mode == model.ModeInsert {
		if screen == model.ScreenLookup {
			return renderLookupHelp(width)
		}
		return renderFormHelp(width)
	}
	return renderBooksHelp(width)
}

func renderBooksHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("a", "add"),
		helpKey("e", "edit"),
		helpKey("d", "delete"),
		helpKey("f", "find"),
		helpKey("r", "refresh"),
		helpKey("y", "copy isbn"),
		helpKey("s/S", "sort"),
		helpKey("n/N", "filter"),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("shift+tab", "prev field"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderLookupHelp(width int) string {
	keys := []string{
		helpKey("enter", "fetch"),
		helpKey("esc", "back"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(max(0, width-4)).
		Height(max(0, height-6)).
		Padding(1, 2)

	sections := []string{
		titleSection("Catalog"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"gg / G", "Jump to top / bottom"},
			{"ctrl+d / ctrl+u", "Half page down / up"},
			{"a", "Add book"},
			{"e / enter", "Edit selected book"},
			{"d", "Delete selected book"},
			{"f", "Find book by ISBN"},
			{"r", "Reload catalog"},
			{"y", "Copy selected ISBN"},
			{"q", "Quit"},
			{"?", "Toggle help"},
		}),
		titleSection("Columns"),
		helpSection([]helpItem{
			{"tab / shift+tab", "Cycle active column"},
			{"/ then 1-4", "Jump to column"},
			{"s / S", "Sort active column asc/desc"},
			{"c / C", "Hide active column / show all"},
			{"n / N", "Filter by selected value / clear"},
		}),
		titleSection("Form"),
		helpSection([]helpItem{
			{"tab", "Next field"},
			{"shift+tab", "Previous field"},
			{"ctrl+s", "Save"},
			{"esc", "Cancel and clear"},
		}),
		titleSection("Find"),
		helpSection([]helpItem{
			{"enter", "Fetch by ISBN"},
			{"esc", "Back to catalog"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
