package ui

import (
	"strings"

	"bookman/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var formLabels = map[string]string{
	model.FieldISBN:   "ISBN *",
	model.FieldTitle:  "Title *",
	model.FieldAuthor: "Author *",
	model.FieldPrice:  "Price *",
}

// FormModel holds the in-progress entry. Inputs follow model.Fields order.
type FormModel struct {
	mode         model.FormMode
	focusedField int
	inputs       []textinput.Model
	keys         FormKeyMap
}

// NewFormModel creates an empty add-mode form.
func NewFormModel() *FormModel {
	inputs := make([]textinput.Model, len(model.Fields))

	inputs[0] = textinput.New()
	inputs[0].Placeholder = "978-0-13-468599-1"
	inputs[0].CharLimit = 32

	inputs[1] = textinput.New()
	inputs[1].Placeholder = "Title"
	inputs[1].CharLimit = 200

	inputs[2] = textinput.New()
	inputs[2].Placeholder = "Author"
	inputs[2].CharLimit = 120

	inputs[3] = textinput.New()
	inputs[3].Placeholder = "0.00"
	inputs[3].CharLimit = 16

	m := &FormModel{
		inputs: inputs,
		keys:   DefaultFormKeyMap(),
	}
	m.Reset()
	return m
}

// Mode returns the current form mode.
func (m *FormModel) Mode() model.FormMode {
	return m.mode
}

// Draft returns the current field values.
func (m *FormModel) Draft() model.Draft {
	var d model.Draft
	for i, name := range model.Fields {
		d = d.With(name, m.inputs[i].Value())
	}
	return d
}

// SetField updates one field. Unknown names are ignored, and so is the ISBN in edit mode.
func (m *FormModel) SetField(name, value string) {
	i := fieldIndex(name)
	if i < 0 || !m.focusable(i) {
		return
	}
	m.inputs[i].SetValue(value)
}

// BeginEdit loads an entry for editing.
func (m *FormModel) BeginEdit(book model.Book) {
	d := model.DraftFromBook(book)
	for i, name := range model.Fields {
		m.inputs[i].SetValue(d.Get(name))
	}
	m.mode = model.FormEdit
	m.focus(1)
}

// Reset empties every field and returns to add mode.
func (m *FormModel) Reset() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.mode = model.FormAdd
	m.focus(0)
}

// Update handles input.
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Cancel):
			return m, func() tea.Msg {
				return model.FormCancelledMsg{}
			}
		case key.Matches(keyMsg, m.keys.Save):
			return m, func() tea.Msg {
				return model.FormSubmitMsg{}
			}
		case key.Matches(keyMsg, m.keys.NextField):
			m.nextField()
			return m, nil
		case key.Matches(keyMsg, m.keys.PrevField):
			m.prevField()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(msg)
	return m, cmd
}

// View renders the form.
func (m *FormModel) View(width, height int) string {
	title := "Add book"
	if m.mode == model.FormEdit {
		title = "Edit book " + m.inputs[0].Value()
	}

	fields := []string{LabelStyle.Render(title)}
	for i, name := range model.Fields {
		label := formLabels[name]
		disabled := !m.focusable(i)
		if disabled {
			label = "ISBN (fixed)"
		}
		fields = append(fields, renderFormField(label, m.inputs[i], m.focusedField == i, disabled))
	}

	return PanelStyle.
		Width(max(0, width-4)).
		Height(max(0, height-4)).
		Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(fields, "\n")))
}

func (m *FormModel) focusable(i int) bool {
	return !(m.mode == model.FormEdit && i == 0)
}

func (m *FormModel) focus(i int) {
	m.inputs[m.focusedField].Blur()
	m.focusedField = i
	m.inputs[m.focusedField].Focus()
}

func (m *FormModel) nextField() {
	i := m.focusedField
	for {
		i = (i + 1) % len(m.inputs)
		if m.focusable(i) {
			break
		}
	}
	m.focus(i)
}

func (m *FormModel) prevField() {
	i := m.focusedField
	for {
		i--
		if i < 0 {
			i = len(m.inputs) - 1
		}
		if m.focusable(i) {
			break
		}
	}
	m.focus(i)
}

func fieldIndex(name string) int {
	for i, f := range model.Fields {
		if f == name {
			return i
		}
	}
	return -1
}
