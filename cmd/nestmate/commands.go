package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/nestmate/internal/action"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/session"
	"github.com/dukerupert/nestmate/internal/state"
	"github.com/dukerupert/nestmate/internal/sync"
)

func init() {
	register("onboard", "create a profile and create or join a nest", runOnboard)
	register("confirm", "check whether a pending join request was approved", runConfirm)
	register("status", "show the cached nest and sync state", runStatus)
	register("sync", "fetch resources from the backend", runSync)
	register("watch", "sync periodically and follow the change feed", runWatch)
	register("profile", "update the signed-in profile", runProfile)
	register("nest", "update the nest (master only)", runNest)
	register("requests", "list, approve or reject join requests", group(map[string]subcommand{
		"list":    requestsList,
		"approve": requestsApprove,
		"reject":  requestsReject,
	}))
	register("todo", "list, add, toggle or remove missions", group(map[string]subcommand{
		"list":   todoList,
		"add":    todoAdd,
		"toggle": todoToggle,
		"rm":     todoRemove,
	}))
	register("event", "list, add, vote on or remove calendar events", group(map[string]subcommand{
		"list": eventList,
		"add":  eventAdd,
		"vote": eventVote,
		"rm":   eventRemove,
	}))
	register("goal", "list, add, move or remove goals", group(map[string]subcommand{
		"list": goalList,
		"add":  goalAdd,
		"inc":  goalProgress(1),
		"dec":  goalProgress(-1),
		"rm":   goalRemove,
	}))
	register("budget", "show spending or manage the budget", group(map[string]subcommand{
		"show":     budgetShow,
		"spend":    budgetSpend,
		"unspend":  budgetUnspend,
		"goal":     budgetGoal,
		"fixed":    budgetFixed,
		"fixed-rm": budgetFixedRemove,
	}))
	register("rule", "list, add or remove house rules", group(map[string]subcommand{
		"list": ruleList,
		"add":  ruleAdd,
		"rm":   ruleRemove,
	}))
	register("backup", "run, list, restore or prune encrypted backups", group(map[string]subcommand{
		"run":     backupRun,
		"list":    backupList,
		"restore": backupRestore,
		"prune":   backupPrune,
	}))
	register("logout", "stop syncing and wipe the local cache", runLogout)
}

type subcommand func(ctx context.Context, s *session.Session, args []string) error

func group(subs map[string]subcommand) func(context.Context, *session.Session, []string) error {
	return func(ctx context.Context, s *session.Session, args []string) error {
		if len(args) == 0 {
			return usagef("missing subcommand, want one of %s", strings.Join(keys(subs), ", "))
		}
		sub, ok := subs[args[0]]
		if !ok {
			return usagef("unknown subcommand %q, want one of %s", args[0], strings.Join(keys(subs), ", "))
		}
		return sub(ctx, s, args[1:])
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func table() *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := parseID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseAmount reads a decimal amount into minor units, e.g. "12.5" is 1250.
func parseAmount(s string) (int64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" || len(frac) > 2 {
		return 0, usagef("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil || n < 0 {
		return 0, usagef("invalid amount %q", s)
	}
	return n, nil
}

func formatAmount(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	return fmt.Sprintf("%s%d.%02d", sign, n/100, n%100)
}

func memberName(snap state.Snapshot, id int64) string {
	if u, ok := snap.Member(id); ok {
		return u.Nickname
	}
	return "#" + strconv.FormatInt(id, 10)
}

func runOnboard(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("onboard")
	nickname := fs.String("nickname", "", "display name")
	email := fs.String("email", "", "email address")
	avatar := fs.Int("avatar", 0, "avatar id")
	memberType := fs.String("type", string(model.MemberHuman), "member type: human, pet, plant or ai")
	create := fs.String("create", "", "create a nest with this name")
	theme := fs.Int("theme", 0, "theme id for a new nest")
	code := fs.String("code", "", "join the nest with this invite code")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	choice := session.NestChoice{InviteCode: *code}
	if *create != "" {
		choice.Create = &action.NestInput{Name: *create, ThemeID: *theme}
	}
	req, err := s.Onboard(ctx, action.ProfileInput{
		Nickname:   *nickname,
		AvatarID:   *avatar,
		MemberType: model.MemberType(*memberType),
		Email:      *email,
	}, choice)
	if err != nil {
		return err
	}
	if req != nil {
		printf("join request %d sent, waiting for approval; run `nestmate confirm %d` later\n", req.ID, req.NestID)
		return nil
	}
	nest := s.State.Nest()
	printf("created nest %q (id %d), invite code %s\n", nest.Name, nest.ID, nest.InviteCode)
	return nil
}

func runConfirm(ctx context.Context, s *session.Session, args []string) error {
	rest, err := parse(flags("confirm"), args, 1)
	if err != nil {
		return err
	}
	nestID, err := parseID(rest[0])
	if err != nil {
		return err
	}
	ok, err := s.Actions.ConfirmMembership(ctx, nestID)
	if err != nil {
		return err
	}
	if !ok {
		printf("still waiting for approval\n")
		return nil
	}
	printf("joined nest %q\n", s.State.Nest().Name)
	return nil
}

func runStatus(_ context.Context, s *session.Session, _ []string) error {
	snap := s.State.Snapshot()
	if snap.User == nil {
		printf("not onboarded\n")
		return nil
	}
	printf("user:    %s (id %d, %s)\n", snap.User.Nickname, snap.User.ID, snap.User.Role)
	if snap.Nest == nil {
		printf("nest:    none\n")
		return nil
	}
	printf("nest:    %s (id %d, code %s)\n", snap.Nest.Name, snap.Nest.ID, snap.Nest.InviteCode)
	printf("members: %d  missions: %d  events: %d  goals: %d  rules: %d\n",
		len(snap.Members), len(snap.Todos), len(snap.Events), len(snap.Goals), len(snap.Rules))

	w := table()
	fmt.Fprintln(w, "RESOURCE\tSYNCED\tSTATE")
	for _, r := range state.Resources {
		st := snap.Sync[r]
		synced := "never"
		if !st.SyncedAt.IsZero() {
			synced = st.SyncedAt.Local().Format(time.DateTime)
		}
		status := "ok"
		switch {
		case snap.IsPending(r):
			status = "pending"
		case st.Stale:
			status = "stale: " + st.Err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r, synced, status)
	}
	return w.Flush()
}

func runSync(ctx context.Context, s *session.Session, args []string) error {
	rest, err := parse(flags("sync"), args, 0)
	if err != nil {
		return err
	}
	var results []sync.Result
	if len(rest) == 0 {
		results = s.Syncer.SyncAll(ctx)
	}
	for _, name := range rest {
		results = append(results, s.Syncer.Sync(ctx, state.Resource(name)))
	}

	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			printf("%-15s %s\n", r.Resource, action.UserMessage(r.Err))
		case r.Skipped:
			printf("%-15s skipped\n", r.Resource)
		case r.Superseded:
			printf("%-15s superseded\n", r.Resource)
		default:
			printf("%-15s ok\n", r.Resource)
		}
	}
	if failed > 0 {
		return &cliError{msg: fmt.Sprintf("%d of %d resources failed to sync", failed, len(results)), code: 1}
	}
	return nil
}

func runWatch(ctx context.Context, s *session.Session, _ []string) error {
	if s.State.Nest() == nil {
		return state.ErrNoNest
	}
	unsubscribe := s.State.Subscribe(func(_ state.Snapshot, r state.Resource) {
		printf("%s changed\n", r)
	})
	defer unsubscribe()

	s.Start(ctx)
	printf("watching, press Ctrl-C to stop\n")
	<-ctx.Done()
	s.Stop()
	return nil
}

func runProfile(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("profile")
	nickname := fs.String("nickname", "", "display name")
	avatar := fs.Int("avatar", 0, "avatar id")
	memberType := fs.String("type", "", "member type")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	var in action.ProfileUpdate
	if fs.Changed("nickname") {
		in.Nickname = nickname
	}
	if fs.Changed("avatar") {
		in.AvatarID = avatar
	}
	if fs.Changed("type") {
		mt := model.MemberType(*memberType)
		in.MemberType = &mt
	}
	u, err := s.Actions.UpdateProfile(ctx, in)
	if err != nil {
		return err
	}
	printf("profile updated: %s (%s)\n", u.Nickname, u.MemberType)
	return nil
}

func runNest(ctx context.Context, s *session.Session, args []string) error {
	current := s.State.Nest()
	if current == nil {
		return state.ErrNoNest
	}
	fs := flags("nest")
	name := fs.String("name", current.Name, "nest name")
	theme := fs.Int("theme", current.ThemeID, "theme id")
	avatar := fs.Int("avatar", current.AvatarID, "avatar id")
	image := fs.String("image", current.ImageURL, "image url")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	n, err := s.Actions.UpdateNest(ctx, action.NestInput{Name: *name, ThemeID: *theme, AvatarID: *avatar, ImageURL: *image})
	if err != nil {
		return err
	}
	printf("nest updated: %s\n", n.Name)
	return nil
}

func requestsList(ctx context.Context, s *session.Session, _ []string) error {
	r := s.Syncer.FetchJoinRequests(ctx)
	if r.Err != nil {
		return r.Err
	}
	if r.Skipped {
		return action.ErrForbidden
	}
	reqs := s.State.JoinRequests()
	if len(reqs) == 0 {
		printf("no pending requests\n")
		return nil
	}
	w := table()
	fmt.Fprintln(w, "ID\tNICKNAME\tTYPE\tREQUESTED")
	for _, jr := range reqs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", jr.ID, jr.User.Nickname, jr.User.MemberType, jr.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func requestsApprove(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("requests approve", args)
	if err != nil {
		return err
	}
	u, err := s.Actions.ApproveJoinRequest(ctx, id)
	if err != nil {
		return err
	}
	printf("%s joined the nest\n", u.Nickname)
	return nil
}

func requestsReject(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("requests reject", args)
	if err != nil {
		return err
	}
	if err := s.Actions.RejectJoinRequest(ctx, id); err != nil {
		return err
	}
	printf("request %d rejected\n", id)
	return nil
}

func singleID(name string, args []string) (int64, error) {
	rest, err := parse(flags(name), args, 1)
	if err != nil {
		return 0, err
	}
	return parseID(rest[0])
}

func todoList(_ context.Context, s *session.Session, _ []string) error {
	snap := s.State.Snapshot()
	daily, weekly := household.PartitionMissions(snap.Todos)
	now := time.Now()
	w := table()
	fmt.Fprintln(w, "ID\tTITLE\tREPEAT\tSTATUS\tASSIGNEES")
	for _, t := range append(daily, weekly...) {
		names := make([]string, 0, len(t.Assignees))
		for _, id := range t.Assignees {
			names = append(names, memberName(snap, id))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Repeat, household.MissionStatus(t, now), strings.Join(names, ", "))
	}
	return w.Flush()
}

func todoAdd(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("todo add")
	repeat := fs.String("repeat", string(model.RepeatNone), "none, daily, weekly or monthly")
	assign := fs.String("assign", "", "comma separated member ids")
	image := fs.String("image", "", "image url")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	assignees, err := parseIDs(*assign)
	if err != nil {
		return err
	}
	t, err := s.Actions.AddTodo(ctx, action.TodoInput{
		Title:     joinArgs(rest),
		Assignees: assignees,
		Repeat:    model.Repeat(*repeat),
		ImageURL:  *image,
	})
	if err != nil {
		return err
	}
	printf("mission %d added\n", t.ID)
	return nil
}

func todoToggle(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("todo toggle", args)
	if err != nil {
		return err
	}
	t, err := s.Actions.ToggleTodo(ctx, id)
	if err != nil {
		return err
	}
	if t.IsCompleted {
		printf("%q done\n", t.Title)
	} else {
		printf("%q reopened\n", t.Title)
	}
	return nil
}

func todoRemove(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("todo rm", args)
	if err != nil {
		return err
	}
	return s.Actions.DeleteTodo(ctx, id)
}

func eventList(_ context.Context, s *session.Session, _ []string) error {
	w := table()
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tTYPE\tLEADING")
	for _, e := range s.State.Events() {
		dates := e.Date
		if e.EndDate != "" && e.EndDate != e.Date {
			dates += ".." + e.EndDate
		}
		leading := ""
		if e.Type == model.EventVote {
			if d, n := household.LeadingDate(e.Votes); n > 0 {
				leading = fmt.Sprintf("%s (%d)", d, n)
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Title, dates, e.Type, leading)
	}
	return w.Flush()
}

func eventAdd(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("event add")
	date := fs.String("date", time.Now().Format(model.DateLayout), "start date (YYYY-MM-DD)")
	end := fs.String("end", "", "end date (YYYY-MM-DD)")
	at := fs.String("time", "", "time of day (HH:MM)")
	vote := fs.Bool("vote", false, "let members vote on a date in the range")
	image := fs.String("image", "", "image url")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	typ := model.EventPlain
	if *vote {
		typ = model.EventVote
	}
	e, err := s.Actions.AddEvent(ctx, action.EventInput{
		Title:    joinArgs(rest),
		Date:     *date,
		EndDate:  *end,
		Time:     *at,
		ImageURL: *image,
		Type:     typ,
	})
	if err != nil {
		return err
	}
	printf("event %d added\n", e.ID)
	return nil
}

func eventVote(ctx context.Context, s *session.Session, args []string) error {
	rest, err := parse(flags("event vote"), args, 2)
	if err != nil {
		return err
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	e, err := s.Actions.VoteEvent(ctx, id, rest[1])
	if err != nil {
		return err
	}
	printf("%s now has %d vote(s)\n", rest[1], len(e.Votes[rest[1]]))
	return nil
}

func eventRemove(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("event rm", args)
	if err != nil {
		return err
	}
	return s.Actions.DeleteEvent(ctx, id)
}

func goalList(_ context.Context, s *session.Session, _ []string) error {
	w := table()
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tPROGRESS")
	for _, g := range s.State.Goals() {
		progress := fmt.Sprintf("%d %s", g.Current, g.Unit)
		if g.HasTarget() {
			progress = fmt.Sprintf("%d/%d %s (%d%%)", g.Current, g.Target, g.Unit, household.GoalPercent(g))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", g.ID, g.Type, g.Title, strings.TrimSpace(progress))
	}
	return w.Flush()
}

func goalAdd(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("goal add")
	typ := fs.String("type", string(model.GoalMonth), "vision, year, month or week")
	target := fs.Int("target", 0, "target amount")
	unit := fs.String("unit", "", "unit label")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	g, err := s.Actions.AddGoal(ctx, action.GoalInput{
		Type:   model.GoalType(*typ),
		Title:  joinArgs(rest),
		Target: *target,
		Unit:   *unit,
	})
	if err != nil {
		return err
	}
	printf("goal %d added\n", g.ID)
	return nil
}

func goalProgress(sign int) subcommand {
	return func(ctx context.Context, s *session.Session, args []string) error {
		rest, err := parse(flags("goal progress"), args, 1)
		if err != nil {
			return err
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		amount := 1
		if len(rest) > 1 {
			if amount, err = strconv.Atoi(rest[1]); err != nil || amount <= 0 {
				return usagef("invalid amount %q", rest[1])
			}
		}
		var g *model.Goal
		if sign > 0 {
			g, err = s.Actions.IncrementGoalProgress(ctx, id, amount)
		} else {
			g, err = s.Actions.DecrementGoalProgress(ctx, id, amount)
		}
		if err != nil {
			return err
		}
		printf("%s: %d\n", g.Title, g.Current)
		return nil
	}
}

func goalRemove(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("goal rm", args)
	if err != nil {
		return err
	}
	return s.Actions.DeleteGoal(ctx, id)
}

func budgetShow(_ context.Context, s *session.Session, args []string) error {
	fs := flags("budget show")
	month := fs.String("month", time.Now().Format("2006-01"), "month to summarize (YYYY-MM)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	m, err := time.Parse("2006-01", *month)
	if err != nil {
		return usagef("invalid month %q", *month)
	}

	snap := s.State.Snapshot()
	txs := household.InMonth(snap.Transactions, m.Year(), m.Month())
	sum := household.Summarize(snap.BudgetGoal, txs)
	printf("budget %s  spent %s  remaining %s  fixed %s/month\n",
		formatAmount(sum.BudgetGoal), formatAmount(sum.TotalSpent), formatAmount(sum.Remaining),
		formatAmount(household.FixedTotal(snap.FixedExpenses)))

	w := table()
	fmt.Fprintln(w, "ID\tDATE\tTITLE\tCATEGORY\tPAYER\tAMOUNT")
	for _, tx := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Title, tx.Category, memberName(snap, tx.PayerID), formatAmount(tx.Amount))
	}
	for _, f := range snap.FixedExpenses {
		fmt.Fprintf(w, "f%d\t%s\t%s\tfixed\t\t%s\n", f.ID, household.NextDue(f, time.Now()).Format(model.DateLayout), f.Title, formatAmount(f.Amount))
	}
	return w.Flush()
}

func budgetSpend(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("budget spend")
	category := fs.String("category", string(model.CategoryEtc), "food, housing, living, transport or etc")
	payer := fs.Int64("payer", 0, "member id of the payer, defaults to you")
	date := fs.String("date", "", "date (YYYY-MM-DD), defaults to today")
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		return err
	}
	tx, err := s.Actions.AddTransaction(ctx, action.TransactionInput{
		Title:    joinArgs(rest[1:]),
		Amount:   amount,
		Category: model.Category(*category),
		PayerID:  *payer,
		Date:     *date,
	})
	if err != nil {
		return err
	}
	printf("transaction %d added\n", tx.ID)
	return nil
}

func budgetUnspend(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("budget unspend", args)
	if err != nil {
		return err
	}
	return s.Actions.DeleteTransaction(ctx, id)
}

func budgetGoal(ctx context.Context, s *session.Session, args []string) error {
	rest, err := parse(flags("budget goal"), args, 1)
	if err != nil {
		return err
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		return err
	}
	if err := s.Actions.SetBudgetGoal(ctx, amount); err != nil {
		return err
	}
	printf("monthly budget set to %s\n", formatAmount(amount))
	return nil
}

func budgetFixed(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("budget fixed")
	day := fs.Int("day", 1, "day of the month it is due")
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}
	amount, err := parseAmount(rest[0])
	if err != nil {
		return err
	}
	f, err := s.Actions.AddFixedExpense(ctx, action.FixedExpenseInput{Title: joinArgs(rest[1:]), Amount: amount, Day: *day})
	if err != nil {
		return err
	}
	printf("fixed expense %d added\n", f.ID)
	return nil
}

func budgetFixedRemove(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("budget fixed-rm", args)
	if err != nil {
		return err
	}
	return s.Actions.DeleteFixedExpense(ctx, id)
}

func ruleList(_ context.Context, s *session.Session, _ []string) error {
	w := table()
	fmt.Fprintln(w, "ID\tPRIORITY\tTITLE\tDESCRIPTION")
	for _, r := range s.State.Rules() {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", r.ID, r.Priority, r.Title, r.Description)
	}
	return w.Flush()
}

func ruleAdd(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("rule add")
	desc := fs.String("desc", "", "description")
	typ := fs.String("type", "", "rule type")
	priority := fs.Int("priority", 0, "priority, lower sorts first")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	r, err := s.Actions.AddRule(ctx, action.RuleInput{Title: joinArgs(rest), Description: *desc, RuleType: *typ, Priority: *priority})
	if err != nil {
		return err
	}
	printf("rule %d added\n", r.ID)
	return nil
}

func ruleRemove(ctx context.Context, s *session.Session, args []string) error {
	id, err := singleID("rule rm", args)
	if err != nil {
		return err
	}
	return s.Actions.DeleteRule(ctx, id)
}

// passphrase reads the backup passphrase from --passphrase or the
// NESTMATE_BACKUP_PASSPHRASE environment variable.
func passphrase(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv("NESTMATE_BACKUP_PASSPHRASE"); p != "" {
		return p, nil
	}
	return "", usagef("set --passphrase or NESTMATE_BACKUP_PASSPHRASE")
}

func backupRun(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("backup run")
	flag := fs.String("passphrase", "", "encryption passphrase")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	pass, err := passphrase(*flag)
	if err != nil {
		return err
	}
	b, err := s.Backup(ctx, pass)
	if err != nil {
		return err
	}
	printf("uploaded %s (%d bytes)\n", b.S3Key, b.SizeBytes)
	return nil
}

func backupList(_ context.Context, s *session.Session, args []string) error {
	fs := flags("backup list")
	limit := fs.Int("limit", 20, "maximum number of backups")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	backups, err := s.Backups().List(*limit)
	if err != nil {
		return err
	}
	w := table()
	fmt.Fprintln(w, "CREATED\tKEY\tSIZE")
	for _, b := range backups {
		fmt.Fprintf(w, "%s\t%s\t%d\n", b.CreatedAt.Local().Format(time.DateTime), b.S3Key, b.SizeBytes)
	}
	return w.Flush()
}

func backupRestore(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("backup restore")
	flag := fs.String("passphrase", "", "encryption passphrase")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	pass, err := passphrase(*flag)
	if err != nil {
		return err
	}
	if err := s.Restore(ctx, rest[0], pass); err != nil {
		return err
	}
	printf("restored %s\n", rest[0])
	return nil
}

func backupPrune(ctx context.Context, s *session.Session, args []string) error {
	fs := flags("backup prune")
	keep := fs.Duration("older-than", 30*24*time.Hour, "remove backups older than this")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	n, err := s.Backups().Prune(ctx, time.Now().Add(-*keep))
	if err != nil {
		return err
	}
	printf("removed %d backup(s)\n", n)
	return nil
}

func runLogout(ctx context.Context, s *session.Session, _ []string) error {
	if err := s.Logout(ctx); err != nil {
		return err
	}
	printf("logged out\n")
	return nil
}
