package ui

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookman/internal/catalog"
	"bookman/internal/model"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory remote store that counts calls.
type fakeCatalog struct {
	books []model.Book
	calls map[string]int

	failList   error
	failCreate error
	failUpdate error
	failDelete error

	// normalize lets a test mimic a server that rewrites what it stores.
	normalize func(model.Book) model.Book
}

func newFakeCatalog(books ...model.Book) *fakeCatalog {
	return &fakeCatalog{
		books: append([]model.Book(nil), books...),
		calls: map[string]int{},
	}
}

func (f *fakeCatalog) ListAll(ctx context.Context) ([]model.Book, error) {
	f.calls["list"]++
	if f.failList != nil {
		return nil, f.failList
	}
	return append([]model.Book(nil), f.books...), nil
}

func (f *fakeCatalog) Create(ctx context.Context, book model.Book) (model.Book, error) {
	f.calls["create"]++
	if f.failCreate != nil {
		return model.Book{}, f.failCreate
	}
	if f.normalize != nil {
		book = f.normalize(book)
	}
	f.books = append(f.books, book)
	return book, nil
}

func (f *fakeCatalog) Update(ctx context.Context, isbn string, changes model.BookUpdate) (model.Book, error) {
	f.calls["update"]++
	if f.failUpdate != nil {
		return model.Book{}, f.failUpdate
	}
	for i, b := range f.books {
		if b.ISBN == isbn {
			f.books[i] = model.Book{ISBN: isbn, Title: changes.Title, Author: changes.Author, Price: changes.Price}
			return f.books[i], nil
		}
	}
	return model.Book{}, &catalog.TransportError{Op: "update", StatusCode: 404}
}

func (f *fakeCatalog) Remove(ctx context.Context, isbn string) error {
	f.calls["delete"]++
	if f.failDelete != nil {
		return f.failDelete
	}
	for i, b := range f.books {
		if b.ISBN == isbn {
			f.books = append(f.books[:i], f.books[i+1:]...)
			return nil
		}
	}
	return &catalog.TransportError{Op: "delete", StatusCode: 404}
}

func (f *fakeCatalog) GetByKey(ctx context.Context, isbn string) (model.Book, error) {
	f.calls["get"]++
	for _, b := range f.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return model.Book{}, &catalog.NotFoundError{ISBN: isbn, Err: &catalog.TransportError{Op: "get", StatusCode: 404}}
}

type harness struct {
	t       *testing.T
	m       Model
	fake    *fakeCatalog
	ticks   *tickRecorder
	copied  []string
	prefsAt string
}

func newHarness(t *testing.T, books ...model.Book) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		fake:    newFakeCatalog(books...),
		ticks:   &tickRecorder{},
		prefsAt: filepath.Join(t.TempDir(), "ui_prefs.json"),
	}
	h.m = New(h.fake, Options{
		Endpoint:  "http://test/bookapi",
		PrefsPath: h.prefsAt,
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	h.m.notifier.tick = h.ticks.tick
	return h
}

// run executes cmd and feeds every resulting message back into the model,
// breadth first, until nothing is left. Spinner ticks are dropped.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg:
		default:
			queue = append(queue, h.send(msg))
		}
	}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(k tea.KeyMsg) {
	h.t.Helper()
	h.run(h.send(k))
}

func (h *harness) init() {
	h.t.Helper()
	h.run(h.m.Init())
}

func (h *harness) notification() (model.Notification, bool) {
	return h.m.notifier.Current()
}

func (h *harness) requireNotification(text string, category model.Category) {
	h.t.Helper()
	note, ok := h.notification()
	require.True(h.t, ok, "expected notification %q", text)
	assert.Equal(h.t, text, note.Text)
	assert.Equal(h.t, category, note.Category)
}

func (h *harness) fill(d model.Draft) {
	for _, name := range model.Fields {
		h.m.form.SetField(name, d.Get(name))
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyCtrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
)

func TestInitLoadsCatalog(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	assert.Equal(t, 1, h.m.pending)

	h.init()

	assert.Equal(t, sampleBooks(), h.m.books.Entries())
	assert.Equal(t, 1, h.fake.calls["list"])
	assert.Equal(t, 0, h.m.pending)
	assert.Equal(t, model.FormAdd, h.m.form.Mode())
	assert.Equal(t, model.Draft{}, h.m.form.Draft())
	_, ok := h.notification()
	assert.False(t, ok)
}

func TestLoadFailureKeepsLastKnownCatalog(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.fake.failList = errors.New("connection refused")
	h.press(keyRunes("r"))

	h.requireNotification("Failed to fetch books.", model.CategoryError)
	assert.Equal(t, sampleBooks(), h.m.books.Entries())
	assert.Equal(t, 0, h.m.pending)
}

func TestInitialLoadFailureLeavesEmptyCatalog(t *testing.T) {
	h := newHarness(t)
	h.fake.failList = errors.New("boom")
	h.init()

	h.requireNotification("Failed to fetch books.", model.CategoryError)
	assert.Equal(t, 0, h.m.books.Len())
	assert.Equal(t, notifyDuration, h.ticks.last())
}

func TestAddWithEmptyISBNFailsWithoutNetwork(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.press(keyRunes("a"))
	require.Equal(t, model.ScreenForm, h.m.screen)
	h.fill(model.Draft{Title: "Go", Author: "Pike", Price: "20"})
	h.press(keyCtrlS)

	h.requireNotification("Please fill out the isbn field.", model.CategoryError)
	assert.Zero(t, h.fake.calls["create"])
	assert.Equal(t, model.ScreenForm, h.m.screen)
	assert.Equal(t, "Go", h.m.form.Draft().Title)
}

func TestAddWithBadPriceFailsWithoutNetwork(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.press(keyRunes("a"))
	h.fill(model.Draft{ISBN: "978-9", Title: "Go", Author: "Pike", Price: "twenty"})
	h.press(keyCtrlS)

	h.requireNotification("Price must be a valid number.", model.CategoryError)
	assert.Zero(t, h.fake.calls["create"])
}

func TestAddSuccessRefreshesAndResets(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.fake.normalize = func(b model.Book) model.Book {
		b.Title = b.Title + " (2nd ed.)"
		return b
	}
	h.init()

	h.press(keyRunes("a"))
	h.fill(model.Draft{ISBN: " 978-9 ", Title: "Go", Author: "Pike", Price: "20"})
	h.press(keyCtrlS)

	h.requireNotification("Book added successfully.", model.CategorySuccess)
	assert.Equal(t, 1, h.fake.calls["create"])
	assert.Equal(t, 2, h.fake.calls["list"])
	// the cache mirrors the service, not the local draft
	assert.Equal(t, h.fake.books, h.m.books.Entries())
	assert.Equal(t, "Go (2nd ed.)", h.m.books.Entries()[3].Title)
	assert.Equal(t, "978-9", h.m.books.Entries()[3].ISBN)

	assert.Equal(t, model.Draft{}, h.m.form.Draft())
	assert.Equal(t, model.FormAdd, h.m.form.Mode())
	assert.Equal(t, model.ScreenBooks, h.m.screen)
	assert.False(t, h.m.submitting)
	assert.Equal(t, 0, h.m.pending)
}

func TestAddFailureKeepsFormOpen(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.fake.failCreate = &catalog.TransportError{Op: "create", StatusCode: 409}
	draft := model.Draft{ISBN: "978-1", Title: "Dup", Author: "X", Price: "1"}
	h.press(keyRunes("a"))
	h.fill(draft)
	h.press(keyCtrlS)

	h.requireNotification("Error adding book.", model.CategoryError)
	assert.Equal(t, draft, h.m.form.Draft())
	assert.Equal(t, model.ScreenForm, h.m.screen)
	assert.False(t, h.m.submitting)
	assert.Equal(t, 1, h.fake.calls["list"])
	assert.Equal(t, sampleBooks(), h.m.books.Entries())
}

func TestSubmitRefusedWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.press(keyRunes("a"))
	h.fill(model.Draft{ISBN: "978-9", Title: "Go", Author: "Pike", Price: "20"})

	first := h.send(model.FormSubmitMsg{})
	require.NotNil(t, first)
	assert.True(t, h.m.submitting)

	h.run(h.send(model.FormSubmitMsg{}))
	h.requireNotification("A save is already in progress.", model.CategoryInfo)
	assert.Zero(t, h.fake.calls["create"])

	h.run(first)
	assert.Equal(t, 1, h.fake.calls["create"])
	assert.Len(t, h.m.books.Entries(), 1)
	assert.False(t, h.m.submitting)
}

func TestCancelledSaveDoesNotBlockOrCloseNextForm(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.press(keyRunes("a"))
	h.fill(model.Draft{ISBN: "1", Title: "A", Author: "B", Price: "1"})
	first := h.send(model.FormSubmitMsg{})
	require.NotNil(t, first)

	h.press(keyEsc)
	assert.False(t, h.m.submitting)

	next := model.Draft{ISBN: "2", Title: "C", Author: "D", Price: "2"}
	h.press(keyRunes("a"))
	h.fill(next)
	second := h.send(model.FormSubmitMsg{})
	require.NotNil(t, second)
	assert.True(t, h.m.submitting)

	// the earlier reply lands while the new draft is still being saved
	h.run(first)
	h.requireNotification("Book added successfully.", model.CategorySuccess)
	assert.Equal(t, model.ScreenForm, h.m.screen)
	assert.Equal(t, next, h.m.form.Draft())
	assert.True(t, h.m.submitting)

	h.run(second)
	assert.Equal(t, 2, h.fake.calls["create"])
	assert.Equal(t, model.ScreenBooks, h.m.screen)
	assert.Equal(t, model.Draft{}, h.m.form.Draft())
	assert.False(t, h.m.submitting)
	assert.Len(t, h.m.books.Entries(), 2)
}

func TestStaleSaveFailureKeepsCurrentSubmitGuard(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.fake.failCreate = errors.New("timeout")
	h.press(keyRunes("a"))
	h.fill(model.Draft{ISBN: "1", Title: "A", Author: "B", Price: "1"})
	first := h.send(model.FormSubmitMsg{})
	h.press(keyEsc)

	h.press(keyRunes("a"))
	h.fill(model.Draft{ISBN: "2", Title: "C", Author: "D", Price: "2"})
	second := h.send(model.FormSubmitMsg{})
	require.NotNil(t, second)

	h.run(first)
	h.requireNotification("Error adding book.", model.CategoryError)
	assert.True(t, h.m.submitting, "the failure belongs to the cancelled form")

	h.run(second)
	assert.False(t, h.m.submitting)
	assert.Equal(t, "2", h.m.form.Draft().ISBN)
}

func TestEditUpdatesEntryByPathKey(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("j"))
	h.press(keyRunes("e"))

	require.Equal(t, model.ScreenForm, h.m.screen)
	assert.Equal(t, model.FormEdit, h.m.form.Mode())
	assert.Equal(t, model.DraftFromBook(sampleBooks()[1]), h.m.form.Draft())
	h.requireNotification("Editing book with ISBN 978-2", model.CategoryInfo)
	assert.Equal(t, editHintDuration, h.ticks.last())

	h.m.form.SetField(model.FieldTitle, "Clean Code, Revised")
	h.m.form.SetField(model.FieldISBN, "hijack")
	h.press(keyCtrlS)

	h.requireNotification("Book updated successfully.", model.CategorySuccess)
	assert.Equal(t, 1, h.fake.calls["update"])
	assert.Equal(t, "978-2", h.m.books.Entries()[1].ISBN)
	assert.Equal(t, "Clean Code, Revised", h.m.books.Entries()[1].Title)
	assert.Len(t, h.m.books.Entries(), 3)
	assert.Equal(t, model.FormAdd, h.m.form.Mode())
	assert.Equal(t, model.ScreenBooks, h.m.screen)
	assert.Equal(t, 2, h.fake.calls["list"])
}

func TestEditAddressesStoredKeyVerbatim(t *testing.T) {
	padded := model.Book{ISBN: " 978-7 ", Title: "Padded", Author: "X", Price: 5}
	h := newHarness(t, padded)
	h.init()

	h.press(keyRunes("e"))
	h.m.form.SetField(model.FieldTitle, "Padded, Revised")
	h.press(keyCtrlS)

	h.requireNotification("Book updated successfully.", model.CategorySuccess)
	require.Len(t, h.m.books.Entries(), 1)
	assert.Equal(t, " 978-7 ", h.m.books.Entries()[0].ISBN)
	assert.Equal(t, "Padded, Revised", h.m.books.Entries()[0].Title)
}

func TestEnterAlsoStartsEdit(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyEnter)
	assert.Equal(t, model.FormEdit, h.m.form.Mode())
	assert.Equal(t, "978-1", h.m.form.Draft().ISBN)
}

func TestUpdateFailureKeepsEditing(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.fake.failUpdate = errors.New("timeout")
	h.press(keyRunes("e"))
	h.m.form.SetField(model.FieldPrice, "12")
	h.press(keyCtrlS)

	h.requireNotification("Error updating book.", model.CategoryError)
	assert.Equal(t, model.FormEdit, h.m.form.Mode())
	assert.Equal(t, "12", h.m.form.Draft().Price)
	assert.Equal(t, sampleBooks(), h.m.books.Entries())
}

func TestCancelResetsWithoutServerContact(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("e"))
	h.press(keyEsc)

	assert.Equal(t, model.ScreenBooks, h.m.screen)
	assert.Equal(t, model.ModeNav, h.m.mode)
	assert.Equal(t, model.FormAdd, h.m.form.Mode())
	assert.Equal(t, model.Draft{}, h.m.form.Draft())
	assert.Equal(t, map[string]int{"list": 1}, h.fake.calls)
}

func TestDeleteFromThreeEntryCatalog(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("G"))
	h.press(keyRunes("d"))

	h.requireNotification("Book deleted successfully.", model.CategorySuccess)
	assert.Equal(t, sampleBooks()[:2], h.m.books.Entries())
	assert.Equal(t, 2, h.fake.calls["list"])
}

func TestDeleteFailureLeavesCatalog(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.fake.failDelete = &catalog.TransportError{Op: "delete", StatusCode: 500}
	h.press(keyRunes("d"))

	h.requireNotification("Error deleting book.", model.CategoryError)
	assert.Equal(t, sampleBooks(), h.m.books.Entries())
	assert.Equal(t, 1, h.fake.calls["list"])
}

func TestDeleteOnEmptyCatalogDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.init()

	h.press(keyRunes("d"))
	assert.Zero(t, h.fake.calls["delete"])
}

func TestLookupFoundLeavesCatalogAlone(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.fake.failList = errors.New("down")
	h.press(keyRunes("r"))
	h.requireNotification("Failed to fetch books.", model.CategoryError)

	h.press(keyRunes("f"))
	require.Equal(t, model.ScreenLookup, h.m.screen)
	h.m.lookup.input.SetValue(" 978-3 ")
	h.press(keyEnter)

	res, ok := h.m.lookup.Result()
	require.True(t, ok)
	require.True(t, res.Found())
	assert.Equal(t, "978-3", res.Key)
	assert.Equal(t, "Refactoring", res.Book.Title)
	// a successful lookup clears a stale error
	_, ok = h.notification()
	assert.False(t, ok)

	assert.Equal(t, sampleBooks(), h.m.books.Entries())
	assert.Equal(t, model.Draft{}, h.m.form.Draft())
	assert.Equal(t, 2, h.fake.calls["list"])
}

func TestLookupFoundKeepsSuccessNotification(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("d"))
	h.press(keyRunes("f"))
	h.m.lookup.input.SetValue("978-2")
	h.press(keyEnter)

	h.requireNotification("Book deleted successfully.", model.CategorySuccess)
}

func TestLookupNotFound(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("f"))
	h.m.lookup.input.SetValue("000-0")
	h.press(keyEnter)

	res, ok := h.m.lookup.Result()
	require.True(t, ok)
	assert.False(t, res.Found())
	assert.Equal(t, "000-0", res.Key)
	h.requireNotification("Book not found.", model.CategoryError)
	assert.Equal(t, sampleBooks(), h.m.books.Entries())

	h.press(keyEsc)
	assert.Equal(t, model.ScreenBooks, h.m.screen)
	_, ok = h.m.lookup.Result()
	assert.True(t, ok, "result slot survives closing the pane")
}

func TestLatestLoadWins(t *testing.T) {
	h := newHarness(t)
	h.init()

	older := []model.Book{sampleBooks()[0]}
	newer := sampleBooks()
	h.send(model.BooksLoadedMsg{Books: older})
	h.send(model.BooksLoadedMsg{Books: newer})
	assert.Equal(t, newer, h.m.books.Entries())
}

func TestStaleExpiryKeepsNewerNotification(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.fake.failDelete = errors.New("x")
	h.press(keyRunes("d"))
	h.fake.failDelete = nil
	h.press(keyRunes("d"))
	h.requireNotification("Book deleted successfully.", model.CategorySuccess)

	h.send(h.ticks.fire(0))
	h.requireNotification("Book deleted successfully.", model.CategorySuccess)

	h.send(h.ticks.fire(1))
	_, ok := h.notification()
	assert.False(t, ok)
}

func TestYankCopiesSelectedISBN(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("j"))
	h.press(keyRunes("y"))

	assert.Equal(t, []string{"978-2"}, h.copied)
	h.requireNotification("Copied ISBN 978-2", model.CategoryInfo)
}

func TestSortPersistsPreferences(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(tea.KeyMsg{Type: tea.KeyTab})
	h.press(keyRunes("S"))

	data, err := os.ReadFile(h.prefsAt)
	require.NoError(t, err)
	var prefs UIPreferences
	require.NoError(t, json.Unmarshal(data, &prefs))
	assert.Equal(t, "title", prefs.Books.SortKey)
	assert.True(t, prefs.Books.SortDesc)

	// display order changes, the cached catalog does not
	assert.Equal(t, "978-1", h.m.books.Selected().ISBN)
	assert.Equal(t, sampleBooks(), h.m.books.Entries())

	reopened := New(newFakeCatalog(), Options{PrefsPath: h.prefsAt})
	assert.Equal(t, "title", reopened.books.Prefs().SortKey)
}

func TestColumnJump(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("/"))
	h.press(keyRunes("3"))
	assert.Equal(t, "author", h.m.books.Prefs().ActiveColumn)
	h.requireNotification("Jumped to column 3", model.CategoryInfo)
}

func TestColumnJumpEndsOnOtherKey(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("/"))
	h.press(keyRunes("j"))
	assert.False(t, h.m.columnJump)
	assert.Equal(t, "978-2", h.m.books.Selected().ISBN, "the key keeps its usual meaning")
	_, ok := h.notification()
	assert.False(t, ok)

	h.press(keyRunes("3"))
	assert.Equal(t, "isbn", h.m.books.Prefs().ActiveColumn)

	h.press(keyRunes("/"))
	h.press(keyEsc)
	assert.False(t, h.m.columnJump)
}

func TestGGJumpsToTop(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.init()

	h.press(keyRunes("G"))
	require.Equal(t, "978-3", h.m.books.Selected().ISBN)
	h.press(keyRunes("g"))
	assert.Equal(t, "978-3", h.m.books.Selected().ISBN)
	h.press(keyRunes("g"))
	assert.Equal(t, "978-1", h.m.books.Selected().ISBN)
}

func TestHelpClosesOnEsc(t *testing.T) {
	h := newHarness(t)
	h.press(keyRunes("?"))
	require.True(t, h.m.showingHelp)
	h.press(keyEsc)
	assert.False(t, h.m.showingHelp)
}

func TestQuitKeys(t *testing.T) {
	h := newHarness(t)
	cmd := h.send(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	h.press(keyRunes("a"))
	// the returned cursor blink cmd is not run; it would sleep
	h.send(keyRunes("q"))
	assert.Equal(t, model.ScreenForm, h.m.screen)
	assert.Equal(t, "q", h.m.form.Draft().ISBN)
}

func TestViewShowsBannerAndEndpoint(t *testing.T) {
	h := newHarness(t, sampleBooks()...)
	h.send(tea.WindowSizeMsg{Width: 120, Height: 30})
	h.init()

	h.fake.failList = errors.New("down")
	h.press(keyRunes("r"))

	view := h.m.View()
	assert.Contains(t, view, "http://test/bookapi")
	assert.Contains(t, view, "Error: Failed to fetch books.")
	assert.Contains(t, view, "Clean Code")

	h.press(keyRunes("?"))
	assert.Contains(t, h.m.View(), "Find book by ISBN")
}

func TestSpinnerStopsWhenIdle(t *testing.T) {
	h := newHarness(t)
	h.init()
	require.Equal(t, 0, h.m.pending)

	cmd := h.send(spinner.TickMsg{Time: time.Now()})
	assert.Nil(t, cmd)
}
