package router

import (
	"strings"

	"github.com/tmacree/healthtext/internal/types"
)

// simulateMarker makes the whole message a dry run.
const simulateMarker = "/test"

var slashCommands = map[string]types.CommandKind{
	"/summary":  types.CmdSummary,
	"/week":     types.CmdWeek,
	"/month":    types.CmdMonth,
	"/lookup":   types.CmdLookup,
	"/undo":     types.CmdUndo,
	"/reset":    types.CmdResetToday,
	"/migraine": types.CmdMigraine,
	"/med":      types.CmdMed,
	"/meds":     types.CmdMeds,
	"/food":     types.CmdFood,
	"/barcode":  types.CmdBarcode,
	"/fact":     types.CmdFact,
	"/facts":    types.CmdFacts,
	"/fast":     types.CmdFast,
	"/help":     types.CmdHelp,
}

// ParseCommand classifies raw inbound text into the typed command
// union. The ordered rules: strip the simulate marker, match the fixed
// slash-command set case-insensitively, treat a "meal" keyword prefix
// as a meal description, otherwise Unrecognized.
func ParseCommand(text string) types.Command {
	cmd := types.Command{Kind: types.CmdUnrecognized}
	trimmed := strings.TrimSpace(text)

	lower := strings.ToLower(trimmed)
	if lower == simulateMarker {
		cmd.Simulate = true
		return cmd
	}
	if strings.HasPrefix(lower, simulateMarker+" ") {
		cmd.Simulate = true
		trimmed = strings.TrimSpace(trimmed[len(simulateMarker):])
		lower = strings.ToLower(trimmed)
	}

	if strings.HasPrefix(lower, "/") {
		word := lower
		args := ""
		if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
			word = strings.ToLower(trimmed[:i])
			args = strings.TrimSpace(trimmed[i+1:])
		}
		if kind, ok := slashCommands[word]; ok {
			cmd.Kind = kind
			cmd.Args = args
			return cmd
		}
		return cmd
	}

	// "meal: two eggs" or "meal two eggs"
	if rest, ok := strings.CutPrefix(lower, "meal:"); ok {
		cmd.Kind = types.CmdMeal
		cmd.Args = strings.TrimSpace(trimmed[len(trimmed)-len(rest):])
		return cmd
	}
	if strings.HasPrefix(lower, "meal ") {
		cmd.Kind = types.CmdMeal
		cmd.Args = strings.TrimSpace(trimmed[len("meal "):])
		return cmd
	}

	return cmd
}
