// Package memories provides the memory retrieval view for the TUI.
package memories

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

const (
	actionDetails = "Show details"
	actionDelete  = "Delete session"
	actionCancel  = "Cancel"
)

// ActionMenu is a small selection overlay for the highlighted document.
type ActionMenu struct {
	actions  []string
	selected int
	doc      domain.RankedDocument
}

// Config scopes the view to one owner.
type Config struct {
	OwnerID int64
	TopK    int
}

// View is the query input, ranked memory list, optional detail panel and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.MemoryList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	indexing  driving.IndexingService
	cfg       Config
	ctx       context.Context

	width       int
	height      int
	ready       bool
	err         error
	focusInput  bool
	showDetails bool
	actionMenu  *ActionMenu
}

// NewView creates the view. indexing may be nil; deleting and stats are then unavailable.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retrieval driving.RetrievalService,
	indexing driving.IndexingService,
	cfg Config,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s, fmt.Sprintf("owner %d", cfg.OwnerID)),
		list:       list.NewMemoryList(s),
		statusbar:  status.NewBar(s, km),
		retrieval:  retrieval,
		indexing:   indexing,
		cfg:        cfg,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blink and loads index stats.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadStats())
}

// Update handles messages for the view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RetrieveCompleted:
		v.handleRetrieveCompleted(msg)
		return v, nil

	case messages.SessionDeleted:
		return v, v.handleSessionDeleted(msg)

	case messages.StatsLoaded:
		if msg.Err == nil {
			v.statusbar.SetStats(msg.Stats)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.actionMenu != nil {
		return v.handleActionMenuKey(msg)
	}

	if v.focusInput {
		switch msg.Type {
		case tea.KeyEnter:
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateRetrieving)
			v.statusbar.SetMessage("")
			return v, v.performRetrieve(query)
		case tea.KeyEsc:
			return v, func() tea.Msg { return messages.Quit{} }
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case msg.Type == tea.KeyEnter:
		if doc := v.list.SelectedDocument(); doc != nil {
			actions := []string{actionDetails, actionCancel}
			if v.indexing != nil {
				actions = []string{actionDetails, actionDelete, actionCancel}
			}
			v.actionMenu = &ActionMenu{actions: actions, doc: *doc}
		}
		return v, nil
	case msg.Type == tea.KeyEsc, keymap.Matches(msg.String(), v.keymap.NewSearch):
		v.focusInput = true
		v.showDetails = false
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	case keymap.Matches(msg.String(), v.keymap.Details):
		v.showDetails = !v.showDetails
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
		return v, nil
	}
	return v, nil
}

func (v *View) handleActionMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	menu := v.actionMenu
	switch {
	case msg.Type == tea.KeyEsc:
		v.actionMenu = nil
	case msg.Type == tea.KeyEnter:
		v.actionMenu = nil
		return v, v.executeAction(menu.actions[menu.selected], menu.doc)
	case keymap.Matches(msg.String(), v.keymap.Up):
		if menu.selected > 0 {
			menu.selected--
		}
	case keymap.Matches(msg.String(), v.keymap.Down):
		if menu.selected < len(menu.actions)-1 {
			menu.selected++
		}
	}
	return v, nil
}

func (v *View) executeAction(action string, doc domain.RankedDocument) tea.Cmd {
	switch action {
	case actionDetails:
		v.showDetails = true
	case actionDelete:
		v.statusbar.SetMessage("Deleting session " + doc.SessionID + "...")
		return v.deleteSession(doc.OwnerID, doc.SessionID)
	}
	return nil
}

func (v *View) performRetrieve(query string) tea.Cmd {
	req := domain.RetrieveRequest{Query: query, OwnerID: v.cfg.OwnerID, TopK: v.cfg.TopK}
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		docs, err := v.retrieval.Retrieve(v.ctx, req)
		return messages.RetrieveCompleted{Query: query, Documents: docs, Err: err}
	}
}

func (v *View) deleteSession(ownerID int64, sessionID string) tea.Cmd {
	return func() tea.Msg {
		err := v.indexing.DeleteSession(v.ctx, ownerID, sessionID)
		return messages.SessionDeleted{OwnerID: ownerID, SessionID: sessionID, Err: err}
	}
}

func (v *View) loadStats() tea.Cmd {
	if v.indexing == nil {
		return nil
	}
	return func() tea.Msg {
		stats, err := v.indexing.Stats(v.ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

func (v *View) handleRetrieveCompleted(msg messages.RetrieveCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.list.SetDocuments(msg.Documents)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Documents))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) handleSessionDeleted(msg messages.SessionDeleted) tea.Cmd {
	if msg.Err != nil {
		v.setError(msg.Err)
		return nil
	}
	v.list.Remove(msg.SessionID)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(v.list.Count())
	v.statusbar.SetMessage("Deleted session " + msg.SessionID)
	return v.loadStats()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("recall"), "", v.input.View(), ""}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	sections = append(sections, v.list.View())

	if v.showDetails {
		if doc := v.list.SelectedDocument(); doc != nil {
			sections = append(sections, "", v.renderDetails(doc))
		}
	}
	if v.actionMenu != nil {
		sections = append(sections, "", v.renderActionMenu())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderDetails(doc *domain.RankedDocument) string {
	types := make([]string, len(doc.FragmentTypes))
	for i, t := range doc.FragmentTypes {
		types[i] = t.String()
	}
	sources := make([]string, len(doc.Sources))
	for i, s := range doc.Sources {
		sources[i] = string(s)
	}

	rows := []string{
		v.styles.Bucket(doc.Bucket).Render(strings.ToUpper(doc.Bucket.String()) + " confidence"),
		"Doc:      " + doc.DocID,
		"Session:  " + doc.SessionID,
		"Date:     " + doc.SessionDate.String(),
		fmt.Sprintf("Score:    %.6f", doc.Score),
		fmt.Sprintf("Evidence: %d", doc.EvidenceCount),
		"Types:    " + strings.Join(types, ", "),
		"Sources:  " + strings.Join(sources, ", "),
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(rows, "\n"))
}

func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Documents returns the current ranked documents.
func (v *View) Documents() []domain.RankedDocument {
	return v.list.Documents()
}

// SelectedIndex returns the index of the selected document.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the query input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// DetailsVisible returns whether the detail panel is shown.
func (v *View) DetailsVisible() bool {
	return v.showDetails
}

// ActionMenuVisible returns whether the action menu is open.
func (v *View) ActionMenuVisible() bool {
	return v.actionMenu != nil
}
