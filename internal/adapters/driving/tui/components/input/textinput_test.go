package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
)

func TestNewQueryInput(t *testing.T) {
	input := NewQueryInput(styles.DefaultStyles(), "owner 7")

	require.NotNil(t, input)
	assert.Equal(t, "", input.Value())
	assert.True(t, input.Focused())
}

func TestNewQueryInput_NilStyles(t *testing.T) {
	input := NewQueryInput(nil, "")

	require.NotNil(t, input)
	assert.NotNil(t, input.styles)
}

func TestQueryInput_Init(t *testing.T) {
	assert.NotNil(t, NewQueryInput(nil, "").Init())
}

func TestQueryInput_TypesHangul(t *testing.T) {
	input := NewQueryInput(nil, "")

	updated, _ := input.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("보온병")})

	assert.Same(t, input, updated)
	assert.Equal(t, "보온병", input.Value())
}

func TestQueryInput_View(t *testing.T) {
	assert.Contains(t, NewQueryInput(nil, "").View(), "Recall: ")
	assert.Contains(t, NewQueryInput(nil, "owner 7").View(), "Recall (owner 7): ")
}

func TestQueryInput_FocusAndBlur(t *testing.T) {
	input := NewQueryInput(nil, "")

	input.Blur()
	assert.False(t, input.Focused())

	input.Focus()
	assert.True(t, input.Focused())
}

func TestQueryInput_SetWidth(t *testing.T) {
	input := NewQueryInput(nil, "")

	input.SetWidth(120)
	assert.Equal(t, 120, input.Width())
	assert.Equal(t, 100, input.textinput.Width)

	input.SetWidth(10)
	assert.Equal(t, minInputWidth, input.textinput.Width)
}

func TestQueryInput_SetValue(t *testing.T) {
	input := NewQueryInput(nil, "")

	input.SetValue("주말 등산")
	assert.Equal(t, "주말 등산", input.Value())

	input.SetValue("")
	assert.Equal(t, "", input.Value())
}
