package ui

import (
	"strings"

	"bookman/internal/model"
	"bookman/internal/util"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LookupModel queries a single entry by key. Its result slot is separate from the catalog.
type LookupModel struct {
	input  textinput.Model
	result *model.LookupResult
	keys   LookupKeyMap
}

// NewLookupModel creates an empty lookup pane.
func NewLookupModel() *LookupModel {
	input := textinput.New()
	input.Placeholder = "ISBN"
	input.CharLimit = 32
	input.Focus()

	return &LookupModel{
		input: input,
		keys:  DefaultLookupKeyMap(),
	}
}

// Result returns the most recent lookup outcome, if any.
func (m *LookupModel) Result() (model.LookupResult, bool) {
	if m.result == nil {
		return model.LookupResult{}, false
	}
	return *m.result, true
}

// SetResult overwrites the result slot.
func (m *LookupModel) SetResult(r model.LookupResult) {
	m.result = &r
}

// Update handles input.
func (m LookupModel) Update(msg tea.Msg) (LookupModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Back):
			return m, func() tea.Msg {
				return model.FormCancelledMsg{}
			}
		case key.Matches(keyMsg, m.keys.Submit):
			k := util.NormalizeKey(m.input.Value())
			return m, func() tea.Msg {
				return model.LookupRequestedMsg{Key: k}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the query field and the last result.
func (m *LookupModel) View(width, height int) string {
	parts := []string{
		LabelStyle.Render("Find book by ISBN"),
		renderFormField("ISBN", m.input, true, false),
		"",
	}

	switch r, ok := m.Result(); {
	case !ok:
		parts = append(parts, HelpDescStyle.Render("Type an ISBN and press enter."))
	case !r.Found():
		parts = append(parts, ErrorStyle.Render("No book with ISBN "+r.Key))
	default:
		parts = append(parts,
			renderField("ISBN", r.Book.ISBN),
			renderField("Title", r.Book.Title),
			renderField("Author", r.Book.Author),
			renderField("Price", util.FormatPrice(r.Book.Price)),
		)
	}

	return PanelStyle.
		Width(max(0, width-4)).
		Height(max(0, height-4)).
		Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(parts, "\n")))
}
