package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorbach/sunostyle/pkg/catalog"
)

func testStyles() []catalog.Style {
	return []catalog.Style{
		{catalog.FieldStyle: "Synthwave", catalog.FieldDecade: "1980s-1990s", catalog.FieldTempo: "100-120", catalog.FieldMood: "Nostalgic"},
		{catalog.FieldStyle: "Doo-Wop", catalog.FieldDecade: "1950s", catalog.FieldTempo: "80", catalog.FieldMood: "Sweet"},
		{catalog.FieldStyle: "Grunge", catalog.FieldDecade: "1990s", catalog.FieldTempo: "130", catalog.FieldMood: "Angry"},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitialSelection(t *testing.T) {
	m := newModel(testStyles(), "grunge")
	assert.Equal(t, 2, m.cursor)
	assert.Equal(t, "Grunge", m.current().Name())
}

func TestFilter(t *testing.T) {
	m := newModel(testStyles(), "")
	m.Update(runes("/"))
	require.True(t, m.filtering)
	m.Update(runes("wop"))
	assert.Len(t, m.view.Rows(), 1)
	assert.Equal(t, "Doo-Wop", m.current().Name())

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "wo", m.filter)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filtering)
	assert.Equal(t, "", m.filter)
	assert.Len(t, m.view.Rows(), 3)
}

func TestSortKeepsCursor(t *testing.T) {
	m := newModel(testStyles(), "Grunge")
	m.Update(runes("2"))
	rows := m.view.Rows()
	assert.Equal(t, "Doo-Wop", rows[0].Name())
	assert.Equal(t, "Synthwave", rows[1].Name())
	assert.Equal(t, "Grunge", m.current().Name())

	m.Update(runes("2"))
	assert.Equal(t, "Grunge", m.view.Rows()[0].Name())
	assert.True(t, m.view.Order().Desc)
	assert.Contains(t, m.View(), "▼")
}

func TestSelect(t *testing.T) {
	m := newModel(testStyles(), "")
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "Doo-Wop", m.selected.Name())
	assert.False(t, m.cancelled)
}

func TestQuit(t *testing.T) {
	m := newModel(testStyles(), "")
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.True(t, m.cancelled)
	assert.Nil(t, m.selected)
}

func TestMoveBounds(t *testing.T) {
	m := newModel(testStyles(), "")
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)
	m.move(10)
	assert.Equal(t, 2, m.cursor)

	m.setFilter("nothing matches")
	m.move(1)
	assert.Equal(t, 0, m.cursor)
	assert.Nil(t, m.current())
	assert.Contains(t, m.View(), "no styles match")
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab  ", pad("ab", 4))
	assert.Equal(t, "abc…", pad("abcdef", 4))
}
