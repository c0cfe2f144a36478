// Package ui provides terminal styling for docmerge CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorAdded = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorConflict = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorRemoved = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

// Diff and status styles, shared by the renderer and every command.
var (
	AddedStyle    = lipgloss.NewStyle().Foreground(ColorAdded)
	RemovedStyle  = lipgloss.NewStyle().Foreground(ColorRemoved)
	ChangedStyle  = lipgloss.NewStyle().Foreground(ColorConflict)
	ConflictStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorConflict)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Status icons
const (
	IconPass     = "✓"
	IconConflict = "⚠"
	IconFail     = "✗"
	IconReverted = "↺"
)

// SeparatorLight is printed between report sections.
const SeparatorLight = "──────────────────────────────────────────"

// RenderAdded renders text with added (green) styling
func RenderAdded(s string) string {
	return AddedStyle.Render(s)
}

// RenderRemoved renders text with removed (red) styling
func RenderRemoved(s string) string {
	return RemovedStyle.Render(s)
}

// RenderChanged renders text with changed (yellow) styling
func RenderChanged(s string) string {
	return ChangedStyle.Render(s)
}

// RenderConflict renders conflict markers and annotations
func RenderConflict(s string) string {
	return ConflictStyle.Render(s)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text with accent (blue) styling
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderHeader renders a bold section header
func RenderHeader(s string) string {
	return HeaderStyle.Render(s)
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderPassIcon renders the pass icon with styling
func RenderPassIcon() string {
	return AddedStyle.Render(IconPass)
}

// RenderConflictIcon renders the conflict icon with styling
func RenderConflictIcon() string {
	return ConflictStyle.Render(IconConflict)
}

// RenderFailIcon renders the fail icon with styling
func RenderFailIcon() string {
	return RemovedStyle.Render(IconFail)
}

// RenderRevertedIcon renders the reverted icon with styling
func RenderRevertedIcon() string {
	return MutedStyle.Render(IconReverted)
}
