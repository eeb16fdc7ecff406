// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
)

// linesPerDocument is the rendered height of one entry.
const linesPerDocument = 2

// MemoryList displays ranked documents in a navigable list.
type MemoryList struct {
	docs     []domain.RankedDocument
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewMemoryList creates an empty list.
func NewMemoryList(s *styles.Styles) *MemoryList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &MemoryList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (m *MemoryList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation keys.
func (m *MemoryList) Update(msg tea.Msg) (*MemoryList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			m.MoveUp()
		case "down", "j":
			m.MoveDown()
		}
	}
	return m, nil
}

// View renders the visible window of the list around the selection.
func (m *MemoryList) View() string {
	if len(m.docs) == 0 {
		return m.styles.Muted.Render("No memories found")
	}

	lines := make([]string, 0, len(m.docs)*linesPerDocument+2)
	lines = append(lines, m.styles.Subtitle.Render(fmt.Sprintf("Memories (%d)", len(m.docs))), "")

	visible := max((m.height-2)/linesPerDocument, 1)
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := min(start+visible, len(m.docs))

	for i := start; i < end; i++ {
		lines = append(lines, m.renderDocument(i, &m.docs[i]))
	}
	return strings.Join(lines, "\n")
}

func (m *MemoryList) renderDocument(index int, doc *domain.RankedDocument) string {
	indicator := "  "
	if index == m.selected {
		indicator = "> "
	}

	date := doc.SessionDate.String()
	if date == "" {
		date = "------"
	}
	head := fmt.Sprintf("%s%2d. %-6s %s  %s", indicator, index+1, doc.Bucket, date, doc.SessionID)
	score := fmt.Sprintf("%.4f", doc.Score)

	var first string
	if index == m.selected {
		first = m.styles.Selected.Render(head + "  " + score)
	} else {
		first = m.styles.Bucket(doc.Bucket).Render(head) + "  " + m.styles.Muted.Render(score)
	}

	detail := fmt.Sprintf("      evidence %d  %s  via %s",
		doc.EvidenceCount, joinTypes(doc.FragmentTypes), joinSources(doc.Sources))
	if maxLen := max(m.width-2, 20); len([]rune(detail)) > maxLen {
		detail = string([]rune(detail)[:maxLen-3]) + "..."
	}
	return first + "\n" + m.styles.Muted.Render(detail)
}

func joinTypes(types []domain.FragmentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func joinSources(sources []domain.Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, "+")
}

// SetDocuments replaces the list and resets the selection.
func (m *MemoryList) SetDocuments(docs []domain.RankedDocument) {
	m.docs = docs
	m.selected = 0
}

// Remove drops every document of a session, keeping the selection in range.
func (m *MemoryList) Remove(sessionID string) {
	kept := make([]domain.RankedDocument, 0, len(m.docs))
	for _, d := range m.docs {
		if d.SessionID != sessionID {
			kept = append(kept, d)
		}
	}
	m.docs = kept
	m.selected = min(m.selected, max(len(m.docs)-1, 0))
}

// Documents returns the current documents.
func (m *MemoryList) Documents() []domain.RankedDocument {
	return m.docs
}

// Selected returns the index of the selected document.
func (m *MemoryList) Selected() int {
	return m.selected
}

// SelectedDocument returns the selected document, or nil when the list is empty.
func (m *MemoryList) SelectedDocument() *domain.RankedDocument {
	if m.selected < 0 || m.selected >= len(m.docs) {
		return nil
	}
	return &m.docs[m.selected]
}

// MoveUp moves selection up.
func (m *MemoryList) MoveUp() {
	if m.selected > 0 {
		m.selected--
	}
}

// MoveDown moves selection down.
func (m *MemoryList) MoveDown() {
	if m.selected < len(m.docs)-1 {
		m.selected++
	}
}

// SetDimensions sets the component dimensions.
func (m *MemoryList) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// Count returns the number of documents.
func (m *MemoryList) Count() int {
	return len(m.docs)
}
