package types

// CommandKind discriminates the parsed command union.
type CommandKind string

const (
	CmdSummary      CommandKind = "summary"
	CmdWeek         CommandKind = "week"
	CmdMonth        CommandKind = "month"
	CmdLookup       CommandKind = "lookup"
	CmdUndo         CommandKind = "undo"
	CmdResetToday   CommandKind = "reset_today"
	CmdMigraine     CommandKind = "migraine"
	CmdMed          CommandKind = "med"
	CmdMeds         CommandKind = "meds"
	CmdFood         CommandKind = "food"
	CmdBarcode      CommandKind = "barcode"
	CmdFact         CommandKind = "fact"
	CmdFacts        CommandKind = "facts"
	CmdFast         CommandKind = "fast"
	CmdHelp         CommandKind = "help"
	CmdMeal         CommandKind = "meal"
	CmdUnrecognized CommandKind = "unrecognized"
)

// Command is the tagged union every inbound message is parsed into at
// the router boundary. Args carries the remainder after the command
// word; Simulate is set when the message carried the leading /test
// marker and makes every downstream mutation a dry run.
type Command struct {
	Kind     CommandKind
	Args     string
	Simulate bool
}
