package utils

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFormatter(t *testing.T) {
	table := NewTableFormatter("State", "Tasks").AlignColumn(1, AlignRight)
	require.NoError(t, table.AddRow("completed", 12))
	require.NoError(t, table.AddRow("failed", 0))
	assert.Error(t, table.AddRow("orphan"))

	want := strings.Join([]string{
		"┌───────────┬───────┐",
		"│ State     │ Tasks │",
		"├───────────┼───────┤",
		"│ completed │    12 │",
		"│ failed    │     0 │",
		"└───────────┴───────┘",
		"",
	}, "\n")
	assert.Equal(t, want, table.String())
}

func TestBox_Render(t *testing.T) {
	out := NewBox(SuccessMessage, "Run complete").
		WithWidth(60).
		AddLinef("%d tasks finished", 3).
		AddBullet("0 failed").
		Render()

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], "Run complete")
	assert.Contains(t, lines[2], "3 tasks finished")
	assert.Contains(t, lines[3], "• 0 failed")
}

func TestBox_WrapsLongLines(t *testing.T) {
	long := strings.Repeat("word ", 30)
	out := NewBox(InfoMessage, "Title").WithWidth(40).AddLine(long).Render()

	lines := strings.Split(out, "\n")
	assert.Greater(t, len(lines), 4)
	for _, l := range lines[2 : len(lines)-1] {
		assert.LessOrEqual(t, lipgloss.Width(l), 40)
	}
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	assert.Equal(t, []string{""}, wrapText("   ", 8))
}

func TestConvenienceBoxes(t *testing.T) {
	for _, render := range []func(string, ...string) string{Info, Success, Warning, Error} {
		out := render("title", "body")
		assert.Contains(t, out, "title")
		assert.Contains(t, out, "body")
	}
}
