package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmacree/healthtext/internal/types"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		kind     types.CommandKind
		args     string
		simulate bool
	}{
		{"summary", "/summary", types.CmdSummary, "", false},
		{"case insensitive", "/SUMMARY", types.CmdSummary, "", false},
		{"reset with arg", "/reset today", types.CmdResetToday, "today", false},
		{"migraine start", "/migraine start 3pm", types.CmdMigraine, "start 3pm", false},
		{"med with dose", "/med sumatriptan 50mg", types.CmdMed, "sumatriptan 50mg", false},
		{"meds distinct from med", "/meds", types.CmdMeds, "", false},
		{"food set", "/food set egg = 70/6/0/5", types.CmdFood, "set egg = 70/6/0/5", false},
		{"meal colon", "meal: Chicken Salad", types.CmdMeal, "Chicken Salad", false},
		{"meal space", "meal two eggs", types.CmdMeal, "two eggs", false},
		{"meal keyword case", "MEAL: eggs", types.CmdMeal, "eggs", false},
		{"simulate marker", "/test meal: eggs", types.CmdMeal, "eggs", true},
		{"simulate slash command", "/test /med advil", types.CmdMed, "advil", true},
		{"bare marker", "/test", types.CmdUnrecognized, "", true},
		{"unknown slash", "/frobnicate", types.CmdUnrecognized, "", false},
		{"free text", "hello there", types.CmdUnrecognized, "", false},
		{"whitespace padding", "  /undo  ", types.CmdUndo, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ParseCommand(tt.text)
			assert.Equal(t, tt.kind, cmd.Kind)
			assert.Equal(t, tt.args, cmd.Args)
			assert.Equal(t, tt.simulate, cmd.Simulate)
		})
	}
}
