package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tmacree/healthtext/internal/model"
	"github.com/tmacree/healthtext/internal/models"
	"github.com/tmacree/healthtext/internal/service"
	"github.com/tmacree/healthtext/internal/types"
)

const helpText = `Commands:
  meal: <description> - log a meal
  /summary /week /month - totals vs goals
  /lookup <food> - check macros without logging
  /barcode <upc> - look up an item by barcode
  /undo - remove today's last meal
  /reset today - zero today's totals
  /migraine start|end|status [time] [note]
  /fast start|end|status [time] [note]
  /med <name and dose> - log a medication
  /meds - this month's medication log
  /food set <alias> = kcal/protein/carbs/fat | del <alias> | list
  /fact [add <text>] - send or add a fact
  /facts on|off|hour <0-23>|to <number>|status
Prefix any command with /test for a dry run.`

// Router is the top-level dispatcher: it classifies inbound text,
// invokes the domain services, and produces exactly one reply per
// message.
type Router struct {
	meals     *service.MealService
	stats     *service.StatsService
	episodes  *service.EpisodeService
	meds      *service.MedService
	overrides *service.OverrideService
	facts     *service.FactsService
	resolver  *service.NutritionResolver
	userID    string
	loc       *time.Location
}

// New creates a new Router instance
func New(
	meals *service.MealService,
	stats *service.StatsService,
	episodes *service.EpisodeService,
	meds *service.MedService,
	overrides *service.OverrideService,
	facts *service.FactsService,
	resolver *service.NutritionResolver,
	userID string,
	loc *time.Location,
) *Router {
	return &Router{
		meals:     meals,
		stats:     stats,
		episodes:  episodes,
		meds:      meds,
		overrides: overrides,
		facts:     facts,
		resolver:  resolver,
		userID:    userID,
		loc:       loc,
	}
}

// HandleMessage processes one inbound message and returns the reply.
// Domain errors become user-facing text here; nothing escapes as a
// process crash.
func (r *Router) HandleMessage(ctx context.Context, msg types.InboundMessage) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Router] panic handling %q: %v", msg.Text, rec)
			reply = "Sorry, something went wrong handling that. Please try again."
		}
	}()

	cmd := ParseCommand(msg.Text)
	when := time.UnixMilli(msg.TimestampMs).In(r.loc)
	day := when.Format("2006-01-02")

	body, err := r.dispatch(ctx, cmd, msg, when, day)
	if err != nil {
		body = r.errorReply(err)
	}
	if cmd.Simulate {
		body = "[test] " + body
	}
	return body
}

func (r *Router) dispatch(ctx context.Context, cmd types.Command, msg types.InboundMessage, when time.Time, day string) (string, error) {
	switch cmd.Kind {
	case types.CmdMeal:
		return r.handleMeal(ctx, cmd, msg, day)
	case types.CmdSummary:
		return r.handleSummary(ctx, when, day)
	case types.CmdWeek:
		return r.handleRange(ctx, "Last 7 days", r.stats.WeekSummary, when)
	case types.CmdMonth:
		return r.handleRange(ctx, "This month", r.stats.MonthSummary, when)
	case types.CmdLookup:
		return r.handleLookup(ctx, cmd.Args, day)
	case types.CmdBarcode:
		return r.handleBarcode(ctx, cmd.Args)
	case types.CmdUndo:
		return r.handleUndo(ctx, cmd, day)
	case types.CmdResetToday:
		return r.handleReset(ctx, cmd, day)
	case types.CmdMigraine:
		return r.handleEpisode(ctx, models.EpisodeMigraine, cmd, when)
	case types.CmdFast:
		return r.handleEpisode(ctx, models.EpisodeFast, cmd, when)
	case types.CmdMed:
		return r.handleMed(ctx, cmd, when)
	case types.CmdMeds:
		return r.handleMeds(ctx, when)
	case types.CmdFood:
		return r.handleFood(ctx, cmd)
	case types.CmdFact:
		return r.handleFact(ctx, cmd)
	case types.CmdFacts:
		return r.handleFactsConfig(ctx, cmd, msg)
	case types.CmdHelp:
		return helpText, nil
	default:
		return "Sorry, I didn't understand that. Send /help for the command list.", nil
	}
}

func (r *Router) errorReply(err error) string {
	switch {
	case errors.Is(err, service.ErrResolution):
		return "Couldn't work out nutrition for that - try different wording, or set a /food alias."
	case errors.Is(err, service.ErrNothingToUndo):
		return "Nothing to undo today."
	case errors.Is(err, service.ErrNothingOpen):
		return "Nothing to end - no episode is open."
	case errors.Is(err, service.ErrDataIntegrity):
		return "Data check failed: more than one open episode found. Please review the episode log before continuing."
	case errors.Is(err, service.ErrOverrideNotFound):
		return "No food alias by that name."
	case errors.Is(err, service.ErrValidation):
		return "I couldn't parse that. Send /help for usage."
	default:
		log.Printf("[Router] unexpected error: %v", err)
		return "Sorry, something went wrong handling that. Please try again."
	}
}

func (r *Router) handleMeal(ctx context.Context, cmd types.Command, msg types.InboundMessage, day string) (string, error) {
	if cmd.Args == "" {
		return "", fmt.Errorf("%w: empty meal description", service.ErrValidation)
	}
	res, err := r.meals.LogMeal(ctx, r.userID, day, msg.TimestampMs, msg.DeliveryKey, msg.Channel, cmd.Args, cmd.Simulate)
	if err != nil {
		return "", err
	}
	verb := "Logged"
	if res.Preview {
		verb = "Would log"
	}
	return fmt.Sprintf("%s: %s\n%s\nToday: %s", verb, cmd.Args, res.Applied.String(), res.Totals.String()), nil
}

func (r *Router) handleSummary(ctx context.Context, when time.Time, day string) (string, error) {
	sum, err := r.stats.TodaySummary(ctx, r.userID, when)
	if err != nil {
		return "", err
	}
	meals, err := r.meals.MealsForDay(ctx, r.userID, day)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today (%s): %s\n", day, sum.Sum.String())
	fmt.Fprintf(&b, "Goals: max %d kcal, min %dg protein\n", sum.Goals.CaloriesMax, sum.Goals.ProteinMin)
	if len(meals) == 0 {
		b.WriteString("No meals logged yet.")
	} else {
		fmt.Fprintf(&b, "Meals (%d):", len(meals))
		for _, m := range meals {
			fmt.Fprintf(&b, "\n- %s (%d kcal)", m.RawText, m.Calories)
		}
	}
	return b.String(), nil
}

func (r *Router) handleRange(ctx context.Context, label string, f func(context.Context, string, time.Time) (*service.RangeSummary, error), when time.Time) (string, error) {
	sum, err := f(ctx, r.userID, when)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s to %s):\nTotal: %s\nDaily avg: %.0f kcal, P %.0fg, C %.0fg, F %.0fg\nGoals: max %d kcal, min %dg protein",
		label, sum.Start, sum.End, sum.Sum.String(),
		sum.Avg.Calories, sum.Avg.ProteinG, sum.Avg.CarbsG, sum.Avg.FatG,
		sum.Goals.CaloriesMax, sum.Goals.ProteinMin), nil
}

func (r *Router) handleLookup(ctx context.Context, args, day string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("%w: usage /lookup <food>", service.ErrValidation)
	}
	p, err := r.stats.Preview(ctx, r.userID, day, args)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", args, p.Item.String())
	fmt.Fprintf(&b, "If logged, today becomes: %s", p.WouldBe.String())
	if p.OverCal {
		fmt.Fprintf(&b, "\nThat would put you over the %d kcal ceiling.", p.Goals.CaloriesMax)
	}
	if p.MetPro {
		fmt.Fprintf(&b, "\nProtein goal (%dg) met.", p.Goals.ProteinMin)
	}
	return b.String(), nil
}

func (r *Router) handleBarcode(ctx context.Context, args string) (string, error) {
	upc := strings.TrimSpace(args)
	if upc == "" {
		return "", fmt.Errorf("%w: usage /barcode <upc>", service.ErrValidation)
	}
	item, err := r.resolver.ResolveBarcode(ctx, upc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%.0f %s): %s\nLog it with: meal: %s", item.Name, item.Qty, item.Unit, item.Macros.String(), item.Name), nil
}

func (r *Router) handleUndo(ctx context.Context, cmd types.Command, day string) (string, error) {
	res, err := r.meals.UndoLast(ctx, r.userID, day, cmd.Simulate)
	if err != nil {
		return "", err
	}
	verb := "Removed"
	if res.Preview {
		verb = "Would remove"
	}
	return fmt.Sprintf("%s: %s\nToday: %s", verb, res.Text, res.Totals.String()), nil
}

func (r *Router) handleReset(ctx context.Context, cmd types.Command, day string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(cmd.Args), "today") {
		return "", fmt.Errorf("%w: usage /reset today", service.ErrValidation)
	}
	if err := r.meals.ResetDay(ctx, r.userID, day, cmd.Simulate); err != nil {
		return "", err
	}
	if cmd.Simulate {
		return "Would reset today's totals to zero.", nil
	}
	return "Today's totals reset to zero.", nil
}

func (r *Router) handleEpisode(ctx context.Context, kind string, cmd types.Command, now time.Time) (string, error) {
	tokens := strings.Fields(cmd.Args)
	if len(tokens) == 0 {
		return "", fmt.Errorf("%w: usage /%s start|end|status", service.ErrValidation, kind)
	}
	sub := strings.ToLower(tokens[0])
	rest := tokens[1:]

	label := "Migraine"
	if kind == models.EpisodeFast {
		label = "Fast"
	}

	switch sub {
	case "start":
		category := ""
		if kind == models.EpisodeMigraine {
			category, rest = cutCategory(rest)
		}
		when := service.ParseWhen(strings.Join(rest, " "), now, r.loc)
		ep, created, err := r.episodes.Start(ctx, r.userID, kind, when, category, cmd.Simulate)
		if err != nil {
			return "", err
		}
		if !created && !cmd.Simulate {
			return fmt.Sprintf("%s already recorded as started at %s.", label, fmtClock(ep.StartMs, r.loc)), nil
		}
		suffix := ""
		if category != "" {
			suffix = " (" + category + ")"
		}
		return fmt.Sprintf("%s started at %s%s. Send /%s end when it's over.", label, fmtClock(ep.StartMs, r.loc), suffix, kind), nil

	case "end":
		when, remaining := service.CutWhenPrefix(rest, now, r.loc)
		note := strings.Join(remaining, " ")
		res, err := r.episodes.End(ctx, r.userID, kind, when, note, cmd.Simulate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s ended after %s.", label, fmtDur(res.Elapsed)), nil

	case "status":
		st, err := r.episodes.Status(ctx, r.userID, kind, now)
		if err != nil {
			return "", err
		}
		if !st.Open {
			return fmt.Sprintf("No %s in progress.", strings.ToLower(label)), nil
		}
		if kind == models.EpisodeFast {
			msg := fmt.Sprintf("Fasting for %s - %.0f%% of the %dh goal.", fmtDur(st.Elapsed), st.PercentOfGoal, st.GoalHours)
			if st.MetGoal {
				msg += " Goal met!"
			}
			return msg, nil
		}
		return fmt.Sprintf("%s ongoing for %s (started %s).", label, fmtDur(st.Elapsed), fmtClock(st.Episode.StartMs, r.loc)), nil

	default:
		return "", fmt.Errorf("%w: usage /%s start|end|status", service.ErrValidation, kind)
	}
}

func cutCategory(tokens []string) (category string, rest []string) {
	for i, t := range tokens {
		switch strings.ToLower(t) {
		case "aura", "non-aura":
			return strings.ToLower(t), append(append([]string{}, tokens[:i]...), tokens[i+1:]...)
		}
	}
	return "", tokens
}

func (r *Router) handleMed(ctx context.Context, cmd types.Command, when time.Time) (string, error) {
	if cmd.Args == "" {
		return "", fmt.Errorf("%w: usage /med <name and dose>", service.ErrValidation)
	}
	res, err := r.meds.LogDose(ctx, r.userID, when, cmd.Args, cmd.Simulate)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	verb := "Logged"
	if res.Preview {
		verb = "Would log"
	}
	fmt.Fprintf(&b, "%s medication: %s", verb, res.Category)
	if res.MatchedName != "" && res.Category != service.CatUnknown {
		fmt.Fprintf(&b, " (%s)", res.MatchedName)
	}
	if res.DoseText != "" {
		fmt.Fprintf(&b, ", %s", res.DoseText)
	}
	if res.LinkedEpisodeID != "" {
		b.WriteString("\nLinked to the open migraine.")
	}
	if res.MonthLimit > 0 {
		fmt.Fprintf(&b, "\nMonth to date: %d of %d %s doses.", res.MonthCount, res.MonthLimit, res.Category)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "\n%s", w)
	}
	return b.String(), nil
}

func (r *Router) handleMeds(ctx context.Context, now time.Time) (string, error) {
	doses, counts, err := r.meds.MonthToDate(ctx, r.userID, now)
	if err != nil {
		return "", err
	}
	if len(doses) == 0 {
		return "No medications logged this month.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Medications this month (%d):", len(doses))
	limits := r.meds.Limits()
	for cat, n := range counts {
		if limit, ok := limits[cat]; ok {
			fmt.Fprintf(&b, "\n%s: %d of %d", cat, n, limit)
		} else {
			fmt.Fprintf(&b, "\n%s: %d", cat, n)
		}
	}
	for _, d := range doses {
		line := d.Category
		if d.MatchedName != "" {
			line = d.MatchedName
		}
		if d.DoseText != "" {
			line += " " + d.DoseText
		}
		fmt.Fprintf(&b, "\n- %s %s", d.Day, line)
	}
	return b.String(), nil
}

func (r *Router) handleFood(ctx context.Context, cmd types.Command) (string, error) {
	tokens := strings.Fields(cmd.Args)
	if len(tokens) == 0 {
		return "", fmt.Errorf("%w: usage /food set|del|list", service.ErrValidation)
	}
	sub := strings.ToLower(tokens[0])
	rest := strings.TrimSpace(strings.TrimPrefix(cmd.Args, tokens[0]))

	switch sub {
	case "set":
		alias, macros, note, err := parseFoodSet(rest)
		if err != nil {
			return "", err
		}
		if cmd.Simulate {
			return fmt.Sprintf("Would save %q = %s", alias, macros.String()), nil
		}
		row, err := r.overrides.Set(ctx, r.userID, alias, macros, note)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Saved %q = %s", row.Alias, macros.String()), nil

	case "del", "delete":
		if rest == "" {
			return "", fmt.Errorf("%w: usage /food del <alias>", service.ErrValidation)
		}
		if cmd.Simulate {
			return fmt.Sprintf("Would delete alias %q.", service.NormalizeAlias(rest)), nil
		}
		if err := r.overrides.Delete(ctx, r.userID, rest); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted alias %q.", service.NormalizeAlias(rest)), nil

	case "list":
		rows, err := r.overrides.List(ctx, r.userID)
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			return "No food aliases saved. Add one with /food set <alias> = kcal/protein/carbs/fat", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Food aliases (%d):", len(rows))
		for _, o := range rows {
			fmt.Fprintf(&b, "\n- %s: %d kcal, P %dg, C %dg, F %dg", o.Alias, o.Calories, o.ProteinG, o.CarbsG, o.FatG)
		}
		return b.String(), nil

	default:
		return "", fmt.Errorf("%w: usage /food set|del|list", service.ErrValidation)
	}
}

// parseFoodSet parses "<alias> = kcal/protein/carbs/fat [note...]".
func parseFoodSet(args string) (alias string, macros model.Macros, note string, err error) {
	parts := strings.SplitN(args, "=", 2)
	if len(parts) != 2 {
		return "", macros, "", fmt.Errorf("%w: usage /food set <alias> = kcal/protein/carbs/fat", service.ErrValidation)
	}
	alias = strings.TrimSpace(parts[0])
	right := strings.Fields(strings.TrimSpace(parts[1]))
	if alias == "" || len(right) == 0 {
		return "", macros, "", fmt.Errorf("%w: usage /food set <alias> = kcal/protein/carbs/fat", service.ErrValidation)
	}

	nums := strings.Split(right[0], "/")
	if len(nums) != 4 {
		return "", macros, "", fmt.Errorf("%w: macros must be kcal/protein/carbs/fat", service.ErrValidation)
	}
	vals := make([]int, 4)
	for i, n := range nums {
		v, convErr := strconv.Atoi(strings.TrimSpace(n))
		if convErr != nil || v < 0 {
			return "", macros, "", fmt.Errorf("%w: macros must be non-negative integers", service.ErrValidation)
		}
		vals[i] = v
	}
	macros = model.Macros{Calories: vals[0], ProteinG: vals[1], CarbsG: vals[2], FatG: vals[3]}
	note = strings.Join(right[1:], " ")
	return alias, macros, note, nil
}

func (r *Router) handleFact(ctx context.Context, cmd types.Command) (string, error) {
	args := strings.TrimSpace(cmd.Args)
	if rest, ok := strings.CutPrefix(args, "add "); ok {
		if cmd.Simulate {
			return "Would add fact.", nil
		}
		if _, err := r.facts.AddFact(ctx, r.userID, strings.TrimSpace(rest), ""); err != nil {
			return "", err
		}
		return "Fact added.", nil
	}
	if args != "" {
		return "", fmt.Errorf("%w: usage /fact [add <text>]", service.ErrValidation)
	}

	fact, err := r.facts.SendNow(ctx, r.userID)
	if err != nil {
		return "", err
	}
	if fact == nil {
		return "No facts saved yet. Add one with /fact add <text>", nil
	}
	return "Daily fact:\n" + fact.Text, nil
}

func (r *Router) handleFactsConfig(ctx context.Context, cmd types.Command, msg types.InboundMessage) (string, error) {
	tokens := strings.Fields(strings.ToLower(cmd.Args))
	if len(tokens) == 0 {
		tokens = []string{"status"}
	}

	if cmd.Simulate && tokens[0] != "status" {
		return "Would update facts settings.", nil
	}

	switch tokens[0] {
	case "on":
		// Default the destination to the sender so "on" alone works.
		cfg, err := r.facts.GetConfig(ctx, r.userID)
		if err != nil {
			return "", err
		}
		changes := map[string]interface{}{"enabled": true}
		if cfg.Destination == "" && msg.Sender != "" {
			changes["destination"] = msg.Sender
		}
		cfg, err = r.facts.UpdateConfig(ctx, r.userID, changes)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Daily facts on, sending at %02d:00 to %s.", cfg.Hour, cfg.Destination), nil

	case "off":
		if _, err := r.facts.UpdateConfig(ctx, r.userID, map[string]interface{}{"enabled": false}); err != nil {
			return "", err
		}
		return "Daily facts off.", nil

	case "hour":
		if len(tokens) < 2 {
			return "", fmt.Errorf("%w: usage /facts hour <0-23>", service.ErrValidation)
		}
		h, err := strconv.Atoi(tokens[1])
		if err != nil || h < 0 || h > 23 {
			return "", fmt.Errorf("%w: hour must be 0-23", service.ErrValidation)
		}
		if _, err := r.facts.UpdateConfig(ctx, r.userID, map[string]interface{}{"hour": h}); err != nil {
			return "", err
		}
		return fmt.Sprintf("Daily facts hour set to %02d:00.", h), nil

	case "to":
		if len(tokens) < 2 {
			return "", fmt.Errorf("%w: usage /facts to <number>", service.ErrValidation)
		}
		if _, err := r.facts.UpdateConfig(ctx, r.userID, map[string]interface{}{"destination": tokens[1]}); err != nil {
			return "", err
		}
		return fmt.Sprintf("Daily facts destination set to %s.", tokens[1]), nil

	case "status":
		cfg, err := r.facts.GetConfig(ctx, r.userID)
		if err != nil {
			return "", err
		}
		state := "off"
		if cfg.Enabled {
			state = "on"
		}
		dest := cfg.Destination
		if dest == "" {
			dest = "(not set)"
		}
		last := cfg.LastSentDay
		if last == "" {
			last = "never"
		}
		return fmt.Sprintf("Daily facts: %s at %02d:00 to %s. Last sent: %s.", state, cfg.Hour, dest, last), nil

	default:
		return "", fmt.Errorf("%w: usage /facts on|off|hour <0-23>|to <number>|status", service.ErrValidation)
	}
}

func fmtClock(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("Mon 3:04pm")
}

func fmtDur(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%d minutes", m)
	case m == 0:
		return fmt.Sprintf("%d hours", h)
	default:
		return fmt.Sprintf("%dh %02dm", h, m)
	}
}
