package utils

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// MessageType defines the type of message box to render.
type MessageType int

const (
	// InfoMessage represents an informational message.
	InfoMessage MessageType = iota
	// SuccessMessage represents a run that finished cleanly.
	SuccessMessage
	// WarningMessage represents a run with cancelled or rejected tasks.
	WarningMessage
	// ErrorMessage represents a failed run.
	ErrorMessage
)

const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
)

type boxTheme struct {
	style  lipgloss.Style
	prefix string
}

var themes = map[MessageType]boxTheme{
	InfoMessage:    {lipgloss.NewStyle().Foreground(lipgloss.Color("86")), "ℹ"},
	SuccessMessage: {lipgloss.NewStyle().Foreground(lipgloss.Color("42")), "✓"},
	WarningMessage: {lipgloss.NewStyle().Foreground(lipgloss.Color("178")), "⚠"},
	ErrorMessage:   {lipgloss.NewStyle().Foreground(lipgloss.Color("196")), "✗"},
}

// Box is a builder for creating formatted message boxes.
type Box struct {
	messageType MessageType
	title       string
	content     []string
	width       int
}

// NewBox creates a message box sized to the terminal.
func NewBox(messageType MessageType, title string) *Box {
	return &Box{
		messageType: messageType,
		title:       title,
		width:       getTerminalWidth() - 8, // Default margin
	}
}

// WithWidth overrides the maximum box width.
func (b *Box) WithWidth(width int) *Box {
	b.width = width
	return b
}

// AddLine adds a line of text to the message box content.
func (b *Box) AddLine(text string) *Box {
	b.content = append(b.content, text)
	return b
}

// AddLinef adds a formatted line.
func (b *Box) AddLinef(format string, args ...interface{}) *Box {
	return b.AddLine(fmt.Sprintf(format, args...))
}

// AddBullet adds a bulleted line to the message box content.
func (b *Box) AddBullet(text string) *Box {
	b.content = append(b.content, "• "+text)
	return b
}

// Render builds and returns the formatted message box as a string.
func (b *Box) Render() string {
	theme, ok := themes[b.messageType]
	if !ok {
		theme = themes[InfoMessage]
	}

	contentWidth := b.width - 6
	if contentWidth < 10 {
		contentWidth = 10
	}

	var lines []string
	for _, line := range append([]string{b.title}, b.content...) {
		if utf8.RuneCountInString(line) <= contentWidth {
			lines = append(lines, line)
		} else {
			lines = append(lines, wrapText(line, contentWidth)...)
		}
	}

	boxWidth := 6
	for _, line := range lines {
		if n := utf8.RuneCountInString(line) + 6; n > boxWidth {
			boxWidth = n
		}
	}

	style := theme.style
	edge := style.Render(vertical)

	var sb strings.Builder
	sb.WriteString(style.Render(topLeft+strings.Repeat(horizontal, boxWidth-2)+topRight) + "\n")

	for i, line := range lines {
		lead := "  "
		if i == 0 {
			lead = style.Bold(true).Render(theme.prefix) + " "
		}
		padding := boxWidth - utf8.RuneCountInString(line) - 5
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(&sb, "%s %s%s%s%s\n", edge, lead, line, strings.Repeat(" ", padding), edge)
	}

	sb.WriteString(style.Render(bottomLeft + strings.Repeat(horizontal, boxWidth-2) + bottomRight))
	return sb.String()
}

func render(messageType MessageType, title string, lines []string) string {
	box := NewBox(messageType, title)
	for _, line := range lines {
		box.AddLine(line)
	}
	return box.Render()
}

func Info(title string, lines ...string) string {
	return render(InfoMessage, title, lines)
}

func Success(title string, lines ...string) string {
	return render(SuccessMessage, title, lines)
}

func Warning(title string, lines ...string) string {
	return render(WarningMessage, title, lines)
}

func Error(title string, lines ...string) string {
	return render(ErrorMessage, title, lines)
}

// getTerminalWidth returns the terminal width or defaults to 80 if unable to detect.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// wrapText wraps text to fit within the specified maximum width.
func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(word)+1 <= maxWidth {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
