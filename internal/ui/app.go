package ui

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"bookman/internal/model"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Operator-facing outcome messages.
const (
	msgLoadFailed    = "Failed to fetch books."
	msgAdded         = "Book added successfully."
	msgAddFailed     = "Error adding book."
	msgUpdated       = "Book updated successfully."
	msgUpdateFailed  = "Error updating book."
	msgDeleted       = "Book deleted successfully."
	msgDeleteFailed  = "Error deleting book."
	msgLookupMissing = "Book not found."
	msgSaveInFlight  = "A save is already in progress."
)

// Catalog is the remote store the controller synchronizes with.
type Catalog interface {
	ListAll(ctx context.Context) ([]model.Book, error)
	Create(ctx context.Context, book model.Book) (model.Book, error)
	Update(ctx context.Context, isbn string, changes model.BookUpdate) (model.Book, error)
	Remove(ctx context.Context, isbn string) error
	GetByKey(ctx context.Context, isbn string) (model.Book, error)
}

// Options configures the root model.
type Options struct {
	// Endpoint is shown in the header.
	Endpoint string
	// PrefsPath is where table preferences live. Empty disables persistence.
	PrefsPath string
	// Clipboard overrides the system clipboard writer.
	Clipboard func(string) error
}

// Model is the root Bubble Tea model.
type Model struct {
	client   Catalog
	endpoint string
	screen   model.Screen
	mode     model.Mode
	gState   GState

	width  int
	height int

	showingHelp bool
	columnJump  bool

	books    *BooksModel
	form     *FormModel
	lookup   *LookupModel
	notifier *Notifier
	spinner  spinner.Model

	// pending counts requests in flight. submitting is set while a create or update
	// from the current form session is; formSession changes whenever the form is reset.
	pending     int
	submitting  bool
	formSession int

	keys      KeyMap
	prefs     UIPreferences
	prefsPath string
	copyText  func(string) error
}

// yankedMsg reports the outcome of copying an ISBN to the clipboard.
type yankedMsg struct {
	isbn string
	err  error
}

// New creates a new root model. The initial load is counted as pending until Init's command reports back.
func New(client Catalog, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	prefs := loadUIPreferences(opts.PrefsPath)
	books := NewBooksModel()
	books.ApplyPrefs(prefs.Books)

	return Model{
		client:    client,
		endpoint:  opts.Endpoint,
		screen:    model.ScreenBooks,
		mode:      model.ModeNav,
		gState:    GStateIdle,
		books:     books,
		form:      NewFormModel(),
		lookup:    NewLookupModel(),
		notifier:  NewNotifier(),
		spinner:   s,
		pending:   1,
		keys:      DefaultKeyMap(),
		prefs:     prefs,
		prefsPath: opts.PrefsPath,
		copyText:  copyText,
	}
}

// Init loads the catalog.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadBooksCmd(m.client), m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.mode == model.ModeNav && m.columnJump {
			// column jump lasts for exactly one key
			m.columnJump = false
			if key.Matches(msg, m.keys.Back) {
				m.notifier.Clear()
				return m, nil
			}
			if n, err := strconv.Atoi(msg.String()); err == nil {
				if m.books.JumpToColumn(n) {
					m.persistTablePrefs()
					return m, m.info(fmt.Sprintf("Jumped to column %d", n))
				}
				return m, m.info(fmt.Sprintf("Column %d unavailable", n))
			}
			m.notifier.Clear()
		}

		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if key.Matches(msg, m.keys.Help) && m.mode == model.ModeNav {
			m.showingHelp = !m.showingHelp
			return m, nil
		}

		if m.showingHelp {
			if key.Matches(msg, m.keys.Back, m.keys.Help) {
				m.showingHelp = false
			}
			return m, nil
		}

		if m.mode == model.ModeNav {
			return m.handleNavMode(msg)
		}
		return m.handleInsertMode(msg)

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case notificationExpiredMsg:
		m.notifier.Expire(msg.gen)
		return m, nil

	case model.BooksLoadedMsg:
		m.finish()
		m.books.Replace(msg.Books)
		return m, nil

	case model.BookCreatedMsg:
		m.finish()
		m.settle(msg.Session)
		return m, tea.Batch(
			m.notifier.Notify(msgAdded, model.CategorySuccess, notifyDuration),
			m.start(loadBooksCmd(m.client)),
		)

	case model.BookUpdatedMsg:
		m.finish()
		m.settle(msg.Session)
		return m, tea.Batch(
			m.notifier.Notify(msgUpdated, model.CategorySuccess, notifyDuration),
			m.start(loadBooksCmd(m.client)),
		)

	case model.BookDeletedMsg:
		m.finish()
		return m, tea.Batch(
			m.notifier.Notify(msgDeleted, model.CategorySuccess, notifyDuration),
			m.start(loadBooksCmd(m.client)),
		)

	case model.BookFetchedMsg:
		m.finish()
		book := msg.Book
		m.lookup.SetResult(model.LookupResult{Key: msg.Key, Book: &book})
		if note, ok := m.notifier.Current(); ok && note.Category == model.CategoryError {
			m.notifier.Clear()
		}
		return m, nil

	case model.ErrorMsg:
		m.finish()
		return m, m.handleError(msg)

	case model.FormSubmitMsg:
		return m.submit()

	case model.FormCancelledMsg:
		if m.screen == model.ScreenForm {
			m.resetForm()
		}
		m.screen = model.ScreenBooks
		m.mode = model.ModeNav
		return m, nil

	case model.LookupRequestedMsg:
		return m, m.start(fetchBookCmd(m.client, msg.Key))

	case yankedMsg:
		if msg.err != nil {
			log.Printf("clipboard: %v", msg.err)
			return m, m.notifier.Notify("Could not copy ISBN.", model.CategoryError, notifyDuration)
		}
		return m, m.info("Copied ISBN " + msg.isbn)

	default:
		if m.mode == model.ModeInsert {
			return m.handleInsertMode(msg)
		}
	}

	return m, nil
}

func (m *Model) handleError(msg model.ErrorMsg) tea.Cmd {
	if msg.Key != "" {
		log.Printf("%s %s failed: %v", msg.Op, msg.Key, msg.Err)
	} else {
		log.Printf("%s failed: %v", msg.Op, msg.Err)
	}

	var text string
	switch msg.Op {
	case model.OpLoad:
		text = msgLoadFailed
	case model.OpCreate:
		if msg.Session == m.formSession {
			m.submitting = false
		}
		text = msgAddFailed
	case model.OpUpdate:
		if msg.Session == m.formSession {
			m.submitting = false
		}
		text = msgUpdateFailed
	case model.OpDelete:
		text = msgDeleteFailed
	case model.OpLookup:
		m.lookup.SetResult(model.LookupResult{Key: msg.Key})
		text = msgLookupMissing
	default:
		text = msg.Err.Error()
	}
	return m.notifier.Notify(text, model.CategoryError, notifyDuration)
}

// submit validates the form and sends it. A second submit from the same form session
// is refused while the first is in flight.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, m.info(msgSaveInFlight)
	}
	sub, err := model.BuildSubmission(m.form.Mode(), m.form.Draft())
	if err != nil {
		return m, m.notifier.Notify(err.Error(), model.CategoryError, notifyDuration)
	}

	m.submitting = true
	if sub.Mode == model.FormEdit {
		return m, m.start(updateBookCmd(m.client, m.formSession, sub.ISBN, *sub.Changes))
	}
	return m, m.start(createBookCmd(m.client, m.formSession, *sub.Book))
}

// start counts cmd as pending and restarts the spinner when it was idle.
func (m *Model) start(cmd tea.Cmd) tea.Cmd {
	m.pending++
	if m.pending == 1 {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *Model) finish() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m *Model) info(text string) tea.Cmd {
	return m.notifier.Notify(text, model.CategoryInfo, notifyDuration)
}

// settle closes the form after a successful save, unless the operator has
// moved on to a new form session since.
func (m *Model) settle(session int) {
	if session != m.formSession {
		return
	}
	m.resetForm()
	if m.screen == model.ScreenForm {
		m.screen = model.ScreenBooks
		m.mode = model.ModeNav
	}
}

// resetForm empties the form and starts a new session; replies to earlier sessions no longer touch it.
func (m *Model) resetForm() {
	m.form.Reset()
	m.formSession++
	m.submitting = false
}

func (m *Model) openForm() {
	m.screen = model.ScreenForm
	m.mode = model.ModeInsert
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	var content string
	var breadcrumbParts []string

	banner := m.notifier.View(m.width)
	contentHeight := m.height - 4
	if banner != "" {
		contentHeight -= lipgloss.Height(banner)
	}

	switch m.screen {
	case model.ScreenBooks:
		breadcrumbParts = []string{"Books"}
		content = m.books.View(m.width, contentHeight)
	case model.ScreenForm:
		breadcrumbParts = []string{"Books", "Add"}
		if m.form.Mode() == model.FormEdit {
			breadcrumbParts = []string{"Books", "Edit"}
		}
		content = m.form.View(m.width, contentHeight)
	case model.ScreenLookup:
		breadcrumbParts = []string{"Books", "Find"}
		content = m.lookup.View(m.width, contentHeight)
	}

	header := m.renderHeader(breadcrumbParts)
	footer := RenderHelp(m.screen, m.mode, m.width)

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(max(0, contentHeight)).
		Render(content)

	if banner != "" {
		return lipgloss.JoinVertical(lipgloss.Left, header, banner, content, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (m Model) renderHeader(breadcrumbParts []string) string {
	title := HeaderStyle.Render("bookman")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	right := BreadcrumbStyle.Render(m.endpoint) + "  "
	if m.pending > 0 {
		right = m.spinner.View() + " " + right
	}

	padding := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return TitleStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleTableKeys(msg); ok {
		return m, cmd
	}

	if key.Matches(msg, m.keys.Top) {
		if m.gState == GStateFirstG {
			m.gState = GStateIdle
			m.books.JumpToTop()
			return m, nil
		}
		m.gState = GStateFirstG
		return m, nil
	}
	m.gState = GStateIdle

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Add):
		if m.form.Mode() == model.FormEdit {
			m.resetForm()
		}
		m.openForm()
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		book := m.books.Selected()
		if book == nil {
			return m, nil
		}
		m.form.BeginEdit(*book)
		m.openForm()
		return m, m.notifier.Notify("Editing book with ISBN "+book.ISBN, model.CategoryInfo, editHintDuration)
	case key.Matches(msg, m.keys.Delete):
		book := m.books.Selected()
		if book == nil {
			return m, nil
		}
		return m, m.start(deleteBookCmd(m.client, book.ISBN))
	case key.Matches(msg, m.keys.Lookup):
		m.screen = model.ScreenLookup
		m.mode = model.ModeInsert
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.start(loadBooksCmd(m.client))
	case key.Matches(msg, m.keys.Yank):
		book := m.books.Selected()
		if book == nil {
			return m, nil
		}
		return m, yankCmd(m.copyText, book.ISBN)
	case key.Matches(msg, m.keys.Down):
		m.books.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.books.MoveUp()
	case key.Matches(msg, m.keys.Bottom):
		m.books.JumpToBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.books.HalfPageDown(m.height / 2)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.books.HalfPageUp(m.height / 2)
	}
	return m, nil
}

// handleTableKeys applies column controls. ok is false when msg is not one of them.
func (m *Model) handleTableKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	var t tableController = m.books
	switch {
	case key.Matches(msg, m.keys.NextColumn):
		t.NextColumn()
	case key.Matches(msg, m.keys.PrevColumn):
		t.PrevColumn()
	case key.Matches(msg, m.keys.ColumnJump):
		m.columnJump = true
		return m.info("Jump to column: press 1-4 (esc to cancel)"), true
	case key.Matches(msg, m.keys.SortAsc):
		t.SortActiveColumn(false)
		m.persistTablePrefs()
		return m.info("Sorted ascending"), true
	case key.Matches(msg, m.keys.SortDesc):
		t.SortActiveColumn(true)
		m.persistTablePrefs()
		return m.info("Sorted descending"), true
	case key.Matches(msg, m.keys.HideColumn):
		if !t.HideActiveColumn() {
			return m.info("Cannot hide last visible column"), true
		}
		m.persistTablePrefs()
		return m.info("Column hidden"), true
	case key.Matches(msg, m.keys.ShowColumns):
		t.ShowAllColumns()
		m.persistTablePrefs()
		return m.info("All columns shown"), true
	case key.Matches(msg, m.keys.FilterValue):
		if !t.FilterBySelectedValue() {
			return m.info("No filterable value in selected cell"), true
		}
		return m.info("Filter: " + t.TableMeta()), true
	case key.Matches(msg, m.keys.ClearFilter):
		if t.ClearFilter() {
			return m.info("Filter cleared"), true
		}
		return nil, true
	default:
		return nil, false
	}
	m.persistTablePrefs()
	return nil, true
}

func (m *Model) persistTablePrefs() {
	m.prefs.Books = m.books.Prefs()
	if err := saveUIPreferences(m.prefsPath, m.prefs); err != nil {
		log.Printf("save prefs: %v", err)
	}
}

// handleInsertMode routes input to the open form or lookup pane.
func (m Model) handleInsertMode(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case model.ScreenForm:
		newForm, cmd := m.form.Update(msg)
		m.form = &newForm
		return m, cmd
	case model.ScreenLookup:
		newLookup, cmd := m.lookup.Update(msg)
		m.lookup = &newLookup
		return m, cmd
	}
	return m, nil
}

// Commands

func loadBooksCmd(client Catalog) tea.Cmd {
	return func() tea.Msg {
		books, err := client.ListAll(context.Background())
		if err != nil {
			return model.ErrorMsg{Op: model.OpLoad, Err: err}
		}
		return model.BooksLoadedMsg{Books: books}
	}
}

func createBookCmd(client Catalog, session int, book model.Book) tea.Cmd {
	return func() tea.Msg {
		created, err := client.Create(context.Background(), book)
		if err != nil {
			return model.ErrorMsg{Op: model.OpCreate, Key: book.ISBN, Err: err, Session: session}
		}
		return model.BookCreatedMsg{Book: created, Session: session}
	}
}

func updateBookCmd(client Catalog, session int, isbn string, changes model.BookUpdate) tea.Cmd {
	return func() tea.Msg {
		updated, err := client.Update(context.Background(), isbn, changes)
		if err != nil {
			return model.ErrorMsg{Op: model.OpUpdate, Key: isbn, Err: err, Session: session}
		}
		return model.BookUpdatedMsg{Book: updated, Session: session}
	}
}

func deleteBookCmd(client Catalog, isbn string) tea.Cmd {
	return func() tea.Msg {
		if err := client.Remove(context.Background(), isbn); err != nil {
			return model.ErrorMsg{Op: model.OpDelete, Key: isbn, Err: err}
		}
		return model.BookDeletedMsg{ISBN: isbn}
	}
}

func fetchBookCmd(client Catalog, isbn string) tea.Cmd {
	return func() tea.Msg {
		book, err := client.GetByKey(context.Background(), isbn)
		if err != nil {
			return model.ErrorMsg{Op: model.OpLookup, Key: isbn, Err: err}
		}
		return model.BookFetchedMsg{Key: isbn, Book: book}
	}
}

func yankCmd(copyText func(string) error, isbn string) tea.Cmd {
	return func() tea.Msg {
		return yankedMsg{isbn: isbn, err: copyText(isbn)}
	}
}
