// Package ui provides terminal styling for jt output.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/thewalkersoft/jobtracker/internal/schema"
	"github.com/thewalkersoft/jobtracker/internal/tracker"
)

func init() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Adaptive colors, chosen for both light and dark backgrounds.
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#5a8a00", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#b07800", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#c4302b", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#707880", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#2a7fc1", Dark: "#59c2ff"}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	BoldStyle   = lipgloss.NewStyle().Bold(true)
)

// Status icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "•"
)

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }
func RenderBold(s string) string   { return BoldStyle.Render(s) }

// RenderStatus colors a status label by how far along the application is.
func RenderStatus(s schema.Status) string {
	label := s.DisplayName()
	switch s {
	case schema.StatusOffer:
		return PassStyle.Bold(true).Render(label)
	case schema.StatusApplied, schema.StatusInterviewing:
		return RenderAccent(label)
	case schema.StatusResumeRejected, schema.StatusInterviewRejected:
		return RenderFail(label)
	default:
		return RenderMuted(label)
	}
}

// RenderMessage prefixes a controller message with an icon for its level.
func RenderMessage(msg tracker.Message) string {
	switch msg.Level {
	case tracker.LevelOK:
		return RenderPass(IconPass) + " " + msg.Text
	case tracker.LevelWarn:
		return RenderWarn(IconWarn + " " + msg.Text)
	default:
		return RenderMuted(IconInfo) + " " + msg.Text
	}
}

// RenderError formats a local failure for stderr.
func RenderError(err error) string {
	return RenderFail(IconFail+" Error: ") + err.Error()
}

// Truncate shortens s to width runes, appending "..." when it was cut.
// Newlines are folded so a description fits on one row.
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
