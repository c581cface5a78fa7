package ui

import (
	"fmt"
	"sort"
	"strings"

	"bookman/internal/model"
	"bookman/internal/util"

	"github.com/charmbracelet/lipgloss"
)

type bookColumn struct {
	key    string
	label  string
	width  int
	hidden bool
}

// BooksModel is the local mirror of the remote catalog plus its table view state.
// allRows keeps server order; rows is the sorted and filtered projection.
type BooksModel struct {
	allRows []model.Book
	rows    []model.Book
	cursor  int
	offset  int

	viewportHeight int

	columns      []bookColumn
	activeColumn int
	sortKey      string
	sortDesc     bool
	filterKey    string
	filterValue  string
}

// NewBooksModel creates an empty catalog table.
func NewBooksModel() *BooksModel {
	return &BooksModel{
		allRows: []model.Book{},
		rows:    []model.Book{},
		columns: []bookColumn{
			{key: "isbn", label: "isbn", width: 18},
			{key: "title", label: "title", width: 32},
			{key: "author", label: "author", width: 22},
			{key: "price", label: "price", width: 10},
		},
	}
}

// Replace swaps the whole catalog for a fresh listing. Duplicate keys keep
// their first occurrence. The cursor stays on the same ISBN when it survives.
func (m *BooksModel) Replace(books []model.Book) {
	var selected string
	if b := m.Selected(); b != nil {
		selected = b.ISBN
	}

	seen := make(map[string]bool, len(books))
	rows := make([]model.Book, 0, len(books))
	for _, b := range books {
		if seen[b.ISBN] {
			continue
		}
		seen[b.ISBN] = true
		rows = append(rows, b)
	}
	m.allRows = rows
	m.rebuild()

	if selected == "" {
		return
	}
	for i, b := range m.rows {
		if b.ISBN == selected {
			m.cursor = i
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
			if vh := m.pageHeight(); m.cursor >= m.offset+vh {
				m.offset = m.cursor - vh + 1
			}
			return
		}
	}
}

// Entries returns the catalog in server order.
func (m *BooksModel) Entries() []model.Book {
	return append([]model.Book(nil), m.allRows...)
}

// Len returns the number of cached entries.
func (m *BooksModel) Len() int {
	return len(m.allRows)
}

// Selected returns the entry under the cursor, or nil when the table is empty.
func (m *BooksModel) Selected() *model.Book {
	if len(m.rows) == 0 || m.cursor >= len(m.rows) {
		return nil
	}
	b := m.rows[m.cursor]
	return &b
}

func (m *BooksModel) ApplyPrefs(prefs TablePrefs) {
	if prefs.SortKey != "" && m.hasColumn(prefs.SortKey) {
		m.sortKey = prefs.SortKey
		m.sortDesc = prefs.SortDesc
	}
	hidden := make(map[string]bool, len(prefs.HiddenColumns))
	for _, c := range prefs.HiddenColumns {
		hidden[c] = true
	}
	for i := range m.columns {
		m.columns[i].hidden = hidden[m.columns[i].key]
	}
	if prefs.ActiveColumn != "" {
		for i, c := range m.columns {
			if c.key == prefs.ActiveColumn {
				m.activeColumn = i
				break
			}
		}
	}
	m.ensureVisibleActiveColumn()
	m.rebuild()
}

func (m *BooksModel) Prefs() TablePrefs {
	var hidden []string
	for _, c := range m.columns {
		if c.hidden {
			hidden = append(hidden, c.key)
		}
	}
	return TablePrefs{
		SortKey:       m.sortKey,
		SortDesc:      m.sortDesc,
		HiddenColumns: hidden,
		ActiveColumn:  m.columns[m.activeColumn].key,
	}
}

func (m *BooksModel) hasColumn(key string) bool {
	for _, c := range m.columns {
		if c.key == key {
			return true
		}
	}
	return false
}

func (m *BooksModel) rebuild() {
	rows := append([]model.Book(nil), m.allRows...)

	if m.filterKey != "" && m.filterValue != "" {
		filtered := make([]model.Book, 0, len(rows))
		target := strings.TrimSpace(m.filterValue)
		for _, r := range rows {
			if strings.EqualFold(strings.TrimSpace(m.getValue(r, m.filterKey)), target) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if m.sortKey != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			if m.sortDesc {
				return m.less(rows[j], rows[i])
			}
			return m.less(rows[i], rows[j])
		})
	}

	m.rows = rows
	m.clampCursor()
}

func (m *BooksModel) clampCursor() {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

func (m *BooksModel) less(a, b model.Book) bool {
	if m.sortKey == "price" {
		return a.Price < b.Price
	}
	return strings.ToLower(m.getValue(a, m.sortKey)) < strings.ToLower(m.getValue(b, m.sortKey))
}

func (m *BooksModel) getValue(row model.Book, key string) string {
	switch key {
	case "isbn":
		return row.ISBN
	case "title":
		return row.Title
	case "author":
		return row.Author
	case "price":
		return util.FormatPrice(row.Price)
	default:
		return ""
	}
}

func (m *BooksModel) visibleColumnIndexes() []int {
	var idxs []int
	for i, c := range m.columns {
		if !c.hidden {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (m *BooksModel) ensureVisibleActiveColumn() {
	if !m.columns[m.activeColumn].hidden {
		return
	}
	for i := range m.columns {
		if !m.columns[i].hidden {
			m.activeColumn = i
			return
		}
	}
	m.columns[0].hidden = false
	m.activeColumn = 0
}

func (m *BooksModel) NextColumn() {
	start := m.activeColumn
	for {
		m.activeColumn = (m.activeColumn + 1) % len(m.columns)
		if !m.columns[m.activeColumn].hidden || m.activeColumn == start {
			return
		}
	}
}

func (m *BooksModel) PrevColumn() {
	start := m.activeColumn
	for {
		m.activeColumn--
		if m.activeColumn < 0 {
			m.activeColumn = len(m.columns) - 1
		}
		if !m.columns[m.activeColumn].hidden || m.activeColumn == start {
			return
		}
	}
}

func (m *BooksModel) JumpToColumn(number int) bool {
	if number < 1 || number > len(m.columns) {
		return false
	}
	idx := number - 1
	if m.columns[idx].hidden {
		return false
	}
	m.activeColumn = idx
	return true
}

func (m *BooksModel) SortActiveColumn(desc bool) {
	m.sortKey = m.columns[m.activeColumn].key
	m.sortDesc = desc
	m.rebuild()
}

func (m *BooksModel) HideActiveColumn() bool {
	if len(m.visibleColumnIndexes()) <= 1 {
		return false
	}
	m.columns[m.activeColumn].hidden = true
	m.ensureVisibleActiveColumn()
	return true
}

func (m *BooksModel) ShowAllColumns() {
	for i := range m.columns {
		m.columns[i].hidden = false
	}
}

func (m *BooksModel) FilterBySelectedValue() bool {
	if len(m.rows) == 0 {
		return false
	}
	key := m.columns[m.activeColumn].key
	value := strings.TrimSpace(m.getValue(m.rows[m.cursor], key))
	if value == "" {
		return false
	}
	m.filterKey = key
	m.filterValue = value
	m.rebuild()
	return true
}

func (m *BooksModel) ClearFilter() bool {
	if m.filterKey == "" {
		return false
	}
	m.filterKey = ""
	m.filterValue = ""
	m.rebuild()
	return true
}

func (m *BooksModel) TableMeta() string {
	col := strings.ToUpper(m.columns[m.activeColumn].label)
	parts := []string{fmt.Sprintf("col %s", col)}
	if m.sortKey != "" {
		order := "asc"
		if m.sortDesc {
			order = "desc"
		}
		parts = append(parts, fmt.Sprintf("sort %s %s", strings.ToUpper(m.sortKey), order))
	}
	if m.filterKey != "" {
		parts = append(parts, fmt.Sprintf("filter %s=%q", strings.ToUpper(m.filterKey), m.filterValue))
	}
	return strings.Join(parts, "  ·  ")
}

// View renders the catalog table.
func (m *BooksModel) View(width, height int) string {
	if len(m.allRows) == 0 {
		emptyMsg := `    The catalog is empty.
    Press  a  to add your first book.`
		return EmptyStateStyle.
			Width(width).
			Height(height).
			Render(emptyMsg)
	}

	visible := m.visibleColumnIndexes()
	if len(visible) == 0 {
		return EmptyStateStyle.Width(width).Height(height).Render("No visible columns. Press C to show all columns.")
	}

	widths := make([]int, 0, len(visible))
	headers := make([]string, 0, len(visible))
	totalFixed := 0
	for _, idx := range visible {
		col := m.columns[idx]
		label := formatHeaderLabel(col.label)
		if idx == m.activeColumn {
			label = renderActiveHeaderLabel(label)
		}
		if m.sortKey == col.key {
			if m.sortDesc {
				label += " ↓"
			} else {
				label += " ↑"
			}
		}
		cellWidth := max(col.width+2, lipgloss.Width(label)+4)
		totalFixed += cellWidth
		widths = append(widths, cellWidth)
		headers = append(headers, label)
	}
	sepTotal := (len(widths) - 1) * tableSeparatorWidth()
	if extra := width - totalFixed - sepTotal - 2; extra > 0 {
		widths[len(widths)-1] += extra
	}

	header := renderTableRow(headers, widths, TableHeaderStyle)
	divider := renderTableDivider(widths)

	visibleHeight := max(1, height-3)
	m.viewportHeight = visibleHeight
	var rows []string

	total := 0.0
	for _, r := range m.rows {
		total += r.Price
	}

	for i := m.offset; i < len(m.rows) && i < m.offset+visibleHeight; i++ {
		row := m.rows[i]
		style := NormalRowStyle
		if i == m.cursor {
			style = SelectedRowStyle
		}

		cells := make([]string, 0, len(visible))
		for _, idx := range visible {
			col := m.columns[idx]
			cells = append(cells, util.TruncateString(m.getValue(row, col.key), widths[len(cells)]-2))
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	filterInfo := ""
	if m.filterKey != "" {
		filterInfo = fmt.Sprintf("  ·  filtered: %d/%d", len(m.rows), len(m.allRows))
	}
	meta := m.TableMeta()
	if meta != "" {
		meta = "  ·  " + meta
	}
	rowPos := ""
	if len(m.rows) > 0 {
		rowPos = fmt.Sprintf("  ·  row %d/%d", m.cursor+1, len(m.rows))
	}
	status := StatusBarStyle.Render(fmt.Sprintf("%d books%s  ·  total %s%s%s",
		len(m.rows), rowPos, util.FormatPrice(total), filterInfo, meta))

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		divider,
		strings.Join(rows, "\n"),
	)
	spacerHeight := max(0, height-lipgloss.Height(content)-lipgloss.Height(status))
	spacer := lipgloss.NewStyle().Height(spacerHeight).Render("")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		spacer,
		status,
	)
}

func (m *BooksModel) pageHeight() int {
	if m.viewportHeight == 0 {
		return 10
	}
	return m.viewportHeight
}

// MoveDown moves the cursor down.
func (m *BooksModel) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		if m.cursor >= m.offset+m.pageHeight() {
			m.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (m *BooksModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		if m.cursor < m.offset {
			m.offset--
		}
	}
}

// JumpToTop jumps to the first item.
func (m *BooksModel) JumpToTop() {
	m.cursor = 0
	m.offset = 0
}

// JumpToBottom jumps to the last item.
func (m *BooksModel) JumpToBottom() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = len(m.rows) - 1
	if vh := m.pageHeight(); m.cursor >= vh {
		m.offset = m.cursor - vh + 1
	}
}

// HalfPageDown moves down half a page.
func (m *BooksModel) HalfPageDown(pageSize int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor += pageSize / 2
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if vh := m.pageHeight(); m.cursor >= m.offset+vh {
		m.offset = m.cursor - vh + 1
	}
}

// HalfPageUp moves up half a page.
func (m *BooksModel) HalfPageUp(pageSize int) {
	m.cursor -= pageSize / 2
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
}
