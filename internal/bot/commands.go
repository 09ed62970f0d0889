package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"joke-plugin/internal/app"
	"joke-plugin/internal/models"
	"joke-plugin/pkg/logger"
)

const helpText = "Commands:\n" +
	"- /mode [add|replace] - Choose what /joke does\n" +
	"- /joke - Add a joke or replace the selected text\n" +
	"- /text <content> - Add your own text element\n" +
	"- /design - Show the elements of your design\n" +
	"- /select <id...> - Select text elements\n" +
	"- /unselect - Clear the selection\n" +
	"- /history - Show or hide the joke history\n" +
	"- /reuse <n> - Reuse joke n from the history\n" +
	"- /clear - Clear the joke history\n" +
	"- /status - Show the current state\n" +
	"- /stats - Bot statistics\n" +
	"- /help - Show this help message"

func welcomeText() string {
	return "Welcome to Joke Plugin!\n\n" +
		"I fetch one-line jokes and put them into your design.\n\n" +
		app.Instructions + "\n\n" + helpText
}

// runJoke performs the current mode's action for a chat and returns the reply.
func (b *Bot) runJoke(ctx context.Context, chatID int64) string {
	sess := b.sessions.Get(chatID)
	out, err := b.ctrl.Run(ctx, sess, b.designs.Host(chatID))
	return describeOutcome(out, err)
}

func (b *Bot) reuseJoke(ctx context.Context, chatID int64, arg string) string {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return "Usage: /reuse <n>, where n is the number shown in /history"
	}

	sess := b.sessions.Get(chatID)
	out, err := b.ctrl.ReuseAt(ctx, sess, b.designs.Host(chatID), n-1)
	return describeOutcome(out, err)
}

func (b *Bot) reuseJokeByID(ctx context.Context, chatID int64, id string) string {
	sess := b.sessions.Get(chatID)
	out, err := b.ctrl.Reuse(ctx, sess, b.designs.Host(chatID), strings.TrimSpace(id))
	return describeOutcome(out, err)
}

func describeOutcome(out app.Outcome, err error) string {
	switch {
	case errors.Is(err, app.ErrBusy):
		return "Hold on, still working on the previous joke..."
	case errors.Is(err, app.ErrJokeNotFound):
		return "No such joke in the history."
	case err != nil:
		logger.Error("Joke action failed", logger.Err(err), logger.Mode(string(out.Mode)))
		return "Sorry, something went wrong. Try again later!"
	case out.Skipped:
		return "Select text to replace first (/design, then /select <id...>)."
	case out.Apologized:
		return "Couldn't update your design, an apology note was added instead."
	}

	if out.Mode == models.ModeReplace {
		return "Replaced the selected text with:\n\n" + out.Joke
	}
	return "Latest: " + out.Joke
}

func (b *Bot) setMode(chatID int64, arg string) string {
	sess := b.sessions.Get(chatID)

	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "Current mode: " + app.ModeLabel(sess.Mode())
	}

	mode, err := models.ParseSelectionMode(arg)
	if err != nil {
		return "Unknown mode. Use: /mode add or /mode replace"
	}
	if err := sess.SetMode(mode); err != nil {
		return "Unknown mode. Use: /mode add or /mode replace"
	}
	return "Mode: " + app.ModeLabel(mode)
}

func (b *Bot) addText(ctx context.Context, chatID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Usage: /text <content>"
	}

	el, err := b.designs.AddText(ctx, chatID, text)
	if err != nil {
		logger.Error("Failed to add text element", logger.Err(err), logger.Design(chatID))
		return "Failed to add text element"
	}
	return fmt.Sprintf("Added element #%d", el.ID)
}

func (b *Bot) listDesign(ctx context.Context, chatID int64) string {
	els, err := b.designs.List(ctx, chatID)
	if err != nil {
		logger.Error("Failed to list design", logger.Err(err), logger.Design(chatID))
		return "Failed to load your design"
	}
	if len(els) == 0 {
		return "Your design is empty. Use /joke or /text to add something."
	}
	return formatDesign(els)
}

func formatDesign(els []models.DesignElement) string {
	var sb strings.Builder
	sb.WriteString("Design elements:\n")
	for _, el := range els {
		mark := "[ ]"
		if el.Selected {
			mark = "[x]"
		}
		fmt.Fprintf(&sb, "\n%s #%d %s", mark, el.ID, app.Truncate(el.Text, app.HistoryPreviewLength))
	}
	return sb.String()
}

func (b *Bot) selectElements(ctx context.Context, chatID int64, args []string) string {
	if len(args) == 0 {
		return "Usage: /select <id...>"
	}

	ids, err := parseIDs(args)
	if err != nil {
		return "Usage: /select <id...> with ids from /design"
	}

	n, err := b.designs.Select(ctx, chatID, ids)
	if err != nil {
		logger.Warn("Failed to select elements", logger.Err(err), logger.Design(chatID))
		return "Couldn't select those elements. Check the ids with /design"
	}
	return fmt.Sprintf("%d text element(s) selected. Switch to replace mode to replace them with jokes!", n)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(strings.TrimPrefix(a, "#"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid element id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *Bot) unselect(ctx context.Context, chatID int64) string {
	if err := b.designs.ClearSelection(ctx, chatID); err != nil {
		logger.Error("Failed to clear selection", logger.Err(err), logger.Design(chatID))
		return "Failed to clear the selection"
	}
	return "Selection cleared"
}

// toggleHistory flips history visibility and returns the text to show.
func (b *Bot) toggleHistory(chatID int64) (string, bool) {
	sess := b.sessions.Get(chatID)
	if sess.HistoryLen() == 0 {
		return "No jokes yet. Use /joke first.", false
	}

	if !sess.ToggleHistory() {
		return "History hidden", false
	}
	return formatHistory(sess.Jokes()), true
}

func formatHistory(jokes []models.JokeRecord) string {
	var sb strings.Builder
	sb.WriteString("Joke History - use /reuse <n> or tap to reuse:\n")
	for i, j := range jokes {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, app.Truncate(j.Content, app.HistoryPreviewLength))
	}
	return sb.String()
}

func (b *Bot) clearHistory(chatID int64) string {
	b.sessions.Get(chatID).ClearHistory()
	return "History cleared"
}

func (b *Bot) status(ctx context.Context, chatID int64) string {
	sess := b.sessions.Get(chatID)

	selected, err := b.designs.Host(chatID).Count(ctx)
	if err != nil {
		logger.Warn("Failed to count selection", logger.Err(err), logger.Design(chatID))
	}

	mode := sess.Mode()
	lines := []string{
		"Mode: " + app.ModeLabel(mode),
		app.StatusLine(selected, sess.HistoryLen()),
	}

	action := app.ActionLabel(mode, sess.Busy(), selected)
	if app.ActionDisabled(mode, sess.Busy(), selected) {
		action += " (unavailable)"
	} else {
		action += " - /joke"
	}
	lines = append(lines, action)

	if last := sess.LastJoke(); last != "" {
		lines = append(lines, "Latest: "+last)
	}
	if sess.HistoryLen() > 0 {
		lines = append(lines, app.HistoryToggleLabel(sess.HistoryVisible())+" - /history")
	}

	return strings.Join(lines, "\n")
}

func (b *Bot) stats(ctx context.Context) string {
	if b.usage == nil {
		return "Statistics are not available"
	}

	total, err := b.usage.Count(ctx)
	if err != nil {
		logger.Error("Failed to count usage", logger.Err(err))
		return "Failed to get statistics"
	}

	added, _ := b.usage.CountByMode(ctx, models.ModeAdd)
	replaced, _ := b.usage.CountByMode(ctx, models.ModeReplace)
	fallbacks, _ := b.usage.CountFallback(ctx)

	users := 0
	if b.users != nil {
		users, _ = b.users.Count(ctx)
	}

	return fmt.Sprintf(
		"Bot Statistics\n\n"+
			"Jokes used: %d\n"+
			"Added: %d\n"+
			"Replaced: %d\n"+
			"Fallback jokes: %d\n"+
			"Total users: %d",
		total, added, replaced, fallbacks, users,
	)
}
