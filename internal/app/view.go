package app

import (
	"fmt"

	"joke-plugin/internal/models"
)

const HistoryPreviewLength = 50

const Instructions = "How to use:\n" +
	"- Add mode: adds new joke text elements to your design\n" +
	"- Replace mode: replaces selected text with jokes\n" +
	"- History: view and reuse previous jokes from the list\n" +
	"- Select text elements in your design to enable replace mode"

func ActionLabel(mode models.SelectionMode, busy bool, selected int) string {
	if busy {
		if mode == models.ModeAdd {
			return "Fetching joke..."
		}
		return "Replacing..."
	}

	if mode == models.ModeAdd {
		return "Add Random Joke"
	}

	if selected > 0 {
		return fmt.Sprintf("Replace %d Selected Text(s)", selected)
	}

	return "Select text to replace"
}

func ActionDisabled(mode models.SelectionMode, busy bool, selected int) bool {
	if busy {
		return true
	}
	return mode == models.ModeReplace && selected == 0
}

func HistoryToggleLabel(visible bool) string {
	if visible {
		return "Hide History"
	}
	return "View Joke History"
}

func ModeLabel(mode models.SelectionMode) string {
	if mode == models.ModeReplace {
		return "Replace Selected Text With Joke"
	}
	return "Add New Joke"
}

func StatusLine(selected, historyLen int) string {
	return fmt.Sprintf("Selection (%d selected), History (%d jokes stored)", selected, historyLen)
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
