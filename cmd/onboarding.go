package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"bookman/internal/catalog"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type onboardingStep int

const (
	stepEndpoint onboardingStep = iota
	stepDone
)

// onboardingModel asks once for the catalog endpoint.
type onboardingModel struct {
	step     onboardingStep
	input    textinput.Model
	baseURL  string
	canceled bool
	status   string
	invalid  string
	width    int
	height   int
}

var (
	obColorMuted  = lipgloss.Color("#7A7F8C")
	obColorText   = lipgloss.Color("#E2E4EA")
	obColorAccent = lipgloss.Color("#D4A45A")
	obColorDanger = lipgloss.Color("#E06C75")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newOnboardingModel() onboardingModel {
	in := textinput.New()
	in.Placeholder = catalog.DefaultBaseURL
	in.CharLimit = 300
	in.Prompt = "url> "
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	in.Focus()

	return onboardingModel{step: stepEndpoint, input: in}
}

func (m onboardingModel) Init() tea.Cmd { return textinput.Blink }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.step == stepDone {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			if raw == "" {
				raw = catalog.DefaultBaseURL
			}
			if err := validateBaseURL(raw); err != nil {
				m.invalid = err.Error()
				return m, nil
			}
			m.baseURL = raw
			m.status = "Endpoint saved."
			m.step = stepDone
			return m, tea.Quit
		case "esc":
			m.baseURL = catalog.DefaultBaseURL
			m.status = "Using the default endpoint."
			m.step = stepDone
			return m, tea.Quit
		case "ctrl+c":
			m.canceled = true
			m.status = "Setup canceled."
			m.step = stepDone
			return m, tea.Quit
		}
		m.invalid = ""
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 24
	}

	header := m.renderHeader(width)
	footer := m.renderFooter(width)
	contentHeight := max(8, height-4)
	content := m.renderContent(width, contentHeight)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, content, footer))
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("bookman") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderFooter(width int) string {
	if m.step == stepDone {
		return obFooterStyle.Width(width).Render("Setup complete")
	}
	return obFooterStyle.Width(width).Render("enter save  esc use default  ctrl+c cancel")
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepEndpoint:
		input := obInputStyle.Width(max(30, cardWidth-14)).Render(m.input.View())
		lines := []string{
			obLabelStyle.Render("Where is your book service?"),
			"",
			obMutedStyle.Render("bookman talks to a service exposing /all, /get, /add, /update and /delete."),
			obMutedStyle.Render("Run `bookman serve` for a local one."),
			"",
			obLabelStyle.Render("Base URL"),
			input,
		}
		if m.invalid != "" {
			lines = append(lines, obWarnStyle.Render(m.invalid))
		}
		lines = append(lines, "", obMutedStyle.Render("You can change this later in ~/.bookman/config.yaml"))
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	default:
		msg := obMutedStyle.Render(m.status)
		if m.canceled {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Setup"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

// runOnboarding prompts for the endpoint and stores it in dir/config.yaml.
// It returns "" when the operator cancels; nothing is written then.
func runOnboarding(dir string) (string, error) {
	prog := tea.NewProgram(newOnboardingModel(), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return "", fmt.Errorf("unexpected onboarding model type")
	}
	return saveOnboarding(dir, m)
}

func saveOnboarding(dir string, m onboardingModel) (string, error) {
	if m.canceled || m.baseURL == "" {
		return "", nil
	}
	if _, err := writeBaseURL(dir, m.baseURL); err != nil {
		return "", err
	}
	return m.baseURL, nil
}
