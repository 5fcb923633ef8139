package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/festival-planner/app/internal/client"
	"github.com/festival-planner/app/internal/config"
	"github.com/festival-planner/app/internal/export"
	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
	"github.com/festival-planner/app/internal/planner"
	"github.com/festival-planner/app/internal/prefs"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: planner COMMAND [OPTIONS] [ARGS]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  users              List attendee profiles\n")
	fmt.Fprintf(os.Stderr, "  register NAME      Create a profile and sign in as it\n")
	fmt.Fprintf(os.Stderr, "  login ID           Sign in as an existing profile\n")
	fmt.Fprintf(os.Stderr, "  days               List festival days\n")
	fmt.Fprintf(os.Stderr, "  sets               Show a day's lineup (-day, -view stage|time, -stage, -q)\n")
	fmt.Fprintf(os.Stderr, "  add SET            Add a set to your schedule\n")
	fmt.Fprintf(os.Stderr, "  remove SET         Remove a set from your schedule\n")
	fmt.Fprintf(os.Stderr, "  mine               Show your schedule\n")
	fmt.Fprintf(os.Stderr, "  attendees [SET]    Show who is going to a set, or everyone's schedule\n")
	fmt.Fprintf(os.Stderr, "  export [FILE.ics]  Download your schedule as an iCalendar file\n")
	fmt.Fprintf(os.Stderr, "  watch              Keep a day's attendee counts on screen\n")
	fmt.Fprintf(os.Stderr, "  dark on|off        Switch the color theme\n")
	fmt.Fprintf(os.Stderr, "\nEvery command accepts -config PATH.\n")
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"users":     cmdUsers,
	"register":  cmdRegister,
	"login":     cmdLogin,
	"days":      cmdDays,
	"sets":      cmdSets,
	"add":       cmdAdd,
	"remove":    cmdRemove,
	"mine":      cmdMine,
	"attendees": cmdAttendees,
	"export":    cmdExport,
	"watch":     cmdWatch,
	"dark":      cmdDark,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	if name == "help" || name == "-h" || name == "--help" {
		usage()
		return
	}
	run, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "path to config.yaml")
	fs.Usage = usage
	flags := commandFlags(name, fs)
	fs.Parse(args)

	e, err := newEnv(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	e.flags = flags

	if err := run(ctx, e, fs.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Debug("command failed", "command", name, "err", err.Error())
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// viewFlags are the options of the sets and watch commands.
type viewFlags struct {
	day   *string
	view  *string
	stage *string
	query *string
}

func commandFlags(name string, fs *flag.FlagSet) viewFlags {
	var f viewFlags
	switch name {
	case "sets":
		f.day = fs.String("day", "", "festival day (YYYY-MM-DD), defaults to the first day")
		f.view = fs.String("view", string(planner.ViewStage), "group by stage or time")
		f.stage = fs.String("stage", "", "stage to show in stage view")
		f.query = fs.String("q", "", "filter by artist or stage")
	case "watch":
		f.day = fs.String("day", "", "festival day (YYYY-MM-DD), defaults to the first day")
	}
	return f
}

// env is what every command runs against.
type env struct {
	cfg       *config.Config
	api       *client.Client
	app       *planner.App
	prefs     prefs.Prefs
	prefsPath string
	flags     viewFlags
	out       *renderer
}

func newEnv(configPath string) (*env, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	cfg.ApplyEnv()
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	p, err := prefs.Load(cfg.Planner.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load planner state %s: %w", cfg.Planner.StatePath, err)
	}

	api := client.New(cfg.Planner.APIURL, cfg.Planner.Timeout())
	app := planner.NewApp(api)
	app.SetDarkMode(p.DarkMode)

	return &env{
		cfg:       cfg,
		api:       api,
		app:       app,
		prefs:     p,
		prefsPath: cfg.Planner.StatePath,
		out:       newRenderer(os.Stdout, p.DarkMode),
	}, nil
}

func (e *env) savePrefs() error {
	if err := prefs.Save(e.prefsPath, e.prefs); err != nil {
		return fmt.Errorf("save planner state: %w", err)
	}
	return nil
}

// signIn restores the remembered profile into the app.
func (e *env) signIn(ctx context.Context) (models.User, error) {
	if !e.prefs.SignedIn() {
		return models.User{}, errors.New("no profile selected; run `planner register NAME` or `planner login ID`")
	}
	user, err := e.api.User(ctx, e.prefs.UserID)
	if err != nil {
		if client.IsNotFound(err) {
			return models.User{}, fmt.Errorf("profile %d no longer exists; run `planner login ID`", e.prefs.UserID)
		}
		return models.User{}, err
	}
	e.app.SetUser(user)
	return user, nil
}

// openDay signs in and makes day active, or the first festival day when day
// is empty.
func (e *env) openDay(ctx context.Context, day string) error {
	if _, err := e.signIn(ctx); err != nil {
		return err
	}
	if day != "" {
		if err := e.app.SelectDay(ctx, day); err != nil {
			return err
		}
	}
	if _, err := e.app.LoadDays(ctx); err != nil {
		return err
	}
	if e.app.State().Day == "" {
		return errors.New("the festival has no sets yet")
	}
	return nil
}

func parseID(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one %s", what)
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func cmdUsers(ctx context.Context, e *env, _ []string) error {
	users, err := e.app.Users(ctx)
	if err != nil {
		return err
	}
	e.out.users(users, e.prefs.UserID)
	return nil
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("expected a NAME")
	}
	name := args[0]
	for _, a := range args[1:] {
		name += " " + a
	}
	user, err := e.api.CreateUser(ctx, name)
	if err != nil {
		return err
	}
	e.prefs.UserID = user.ID
	if err := e.savePrefs(); err != nil {
		return err
	}
	log.Info("profile created", "user", user.ID)
	e.out.printf("Signed in as %s (id %d)\n", user.Name, user.ID)
	return nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	id, err := parseID(args, "profile ID")
	if err != nil {
		return err
	}
	user, err := e.api.User(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return fmt.Errorf("no profile with id %d", id)
		}
		return err
	}
	e.prefs.UserID = user.ID
	if err := e.savePrefs(); err != nil {
		return err
	}
	e.out.printf("Signed in as %s (id %d)\n", user.Name, user.ID)
	return nil
}

func cmdDays(ctx context.Context, e *env, _ []string) error {
	days, err := e.api.FestivalDays(ctx)
	if err != nil {
		return err
	}
	e.out.days(days)
	return nil
}

func cmdSets(ctx context.Context, e *env, _ []string) error {
	if err := e.openDay(ctx, *e.flags.day); err != nil {
		return err
	}
	mode := planner.ViewMode(*e.flags.view)
	if mode != planner.ViewStage && mode != planner.ViewTime {
		return fmt.Errorf("unknown view %q, want stage or time", *e.flags.view)
	}
	e.app.SetTab(planner.TabSets)
	e.app.SetViewMode(mode)
	if *e.flags.stage != "" {
		e.app.SetStage(*e.flags.stage)
	}
	e.app.SetQuery(*e.flags.query)

	v, err := e.app.ScheduleView()
	if err != nil {
		return err
	}
	e.out.schedule(e.app.State(), v)
	return nil
}

// lookupSet fetches a set and makes its day active.
func (e *env) lookupSet(ctx context.Context, args []string) (models.Set, error) {
	id, err := parseID(args, "set ID")
	if err != nil {
		return models.Set{}, err
	}
	set, err := e.api.Set(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return models.Set{}, fmt.Errorf("no set with id %d", id)
		}
		return models.Set{}, err
	}
	if err := e.openDay(ctx, set.Day()); err != nil {
		return models.Set{}, err
	}
	return set, nil
}

func cmdAdd(ctx context.Context, e *env, args []string) error {
	set, err := e.lookupSet(ctx, args)
	if err != nil {
		return err
	}
	if e.app.IsSelected(set.ID) {
		e.out.printf("%s is already in your schedule\n", set.Artist)
		return nil
	}
	err = e.app.Toggle(ctx, set.ID)
	e.out.feedback(e.app.Feedback(timeNow()))
	return err
}

func cmdRemove(ctx context.Context, e *env, args []string) error {
	set, err := e.lookupSet(ctx, args)
	if err != nil {
		return err
	}
	if !e.app.IsSelected(set.ID) {
		e.out.printf("%s is not in your schedule\n", set.Artist)
		return nil
	}
	err = e.app.Remove(ctx, set)
	e.out.feedback(e.app.Feedback(timeNow()))
	return err
}

func cmdMine(ctx context.Context, e *env, _ []string) error {
	user, err := e.signIn(ctx)
	if err != nil {
		return err
	}
	e.app.SetTab(planner.TabMySelections)
	slots, err := e.app.MySchedule(ctx)
	if err != nil {
		return err
	}
	e.out.personalSchedule(user.Name, slots)
	return nil
}

func cmdAttendees(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 {
		set, err := e.lookupSet(ctx, args)
		if err != nil {
			return err
		}
		if err := e.app.OpenDetail(ctx, set.ID); err != nil {
			return err
		}
		e.out.detail(e.app.State().Detail)
		return nil
	}

	if _, err := e.signIn(ctx); err != nil {
		return err
	}
	e.app.SetTab(planner.TabAttendees)
	users, err := e.app.Users(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		slots, err := e.app.UserSchedule(ctx, u.ID)
		if err != nil {
			return err
		}
		e.out.personalSchedule(u.Name, slots)
	}
	return nil
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	user, err := e.signIn(ctx)
	if err != nil {
		return err
	}
	path := export.Filename(user.Name)
	if len(args) > 0 {
		path = args[0]
	}
	data, err := e.api.UserCalendar(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	e.out.printf("Saved your schedule to %s\n", path)
	return nil
}

func cmdWatch(ctx context.Context, e *env, _ []string) error {
	if err := e.openDay(ctx, *e.flags.day); err != nil {
		return err
	}
	e.app.SetViewMode(planner.ViewTime)
	show := func() {
		v, err := e.app.ScheduleView()
		if err != nil {
			log.Error("watch render failed", err)
			return
		}
		e.out.counts(e.app.State().Day, v, timeNow())
	}
	show()

	c := cron.New()
	_, err := c.AddFunc(e.cfg.Planner.WatchCron, func() {
		if err := e.app.Refresh(ctx); err != nil {
			log.Error("count refresh failed", err, "day", e.app.State().Day)
			return
		}
		show()
	})
	if err != nil {
		return fmt.Errorf("invalid watch_cron %q: %w", e.cfg.Planner.WatchCron, err)
	}
	c.Start()
	log.Info("watching attendee counts", "day", e.app.State().Day, "schedule", e.cfg.Planner.WatchCron)

	<-ctx.Done()
	log.Info("signal received, shutting down")
	<-c.Stop().Done()
	return nil
}

func cmdDark(_ context.Context, e *env, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errors.New("expected on or off")
	}
	e.prefs.DarkMode = args[0] == "on"
	e.app.SetDarkMode(e.prefs.DarkMode)
	if err := e.savePrefs(); err != nil {
		return err
	}
	e.out = newRenderer(os.Stdout, e.prefs.DarkMode)
	e.out.printf("Dark mode %s\n", args[0])
	return nil
}
