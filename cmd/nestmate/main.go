package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dukerupert/nestmate/internal/action"
	"github.com/dukerupert/nestmate/internal/backup"
	"github.com/dukerupert/nestmate/internal/config"
	"github.com/dukerupert/nestmate/internal/logging"
	"github.com/dukerupert/nestmate/internal/session"
)

var version = "dev"

// command runs with the remaining arguments after its name.
type command struct {
	usage string
	run   func(ctx context.Context, s *session.Session, args []string) error
}

var commands = map[string]command{}

func register(name, usage string, run func(context.Context, *session.Session, []string) error) {
	commands[name] = command{usage: usage, run: run}
}

func usage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: nestmate [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", global.FlagUsages())
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("nestmate", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)
	config.RegisterFlags(global)
	showVersion := global.Bool("version", false, "print the version and exit")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(stdout, global)
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "nestmate %s\n", version)
		return 0
	}

	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		usage(stderr, global)
		return 2
	}

	cfg, err := config.LoadWithFlags(global)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := session.Open(ctx, cfg, session.WithLogger(logger), session.WithVersion(version))
	if err != nil {
		fmt.Fprintf(stderr, "open session: %v\n", err)
		return 1
	}
	defer s.Close()

	out = stdout
	if err := cmd.run(ctx, s, rest[1:]); err != nil {
		logger.Debug("command failed", "command", rest[0], "error", err)
		msg, code := describe(err)
		fmt.Fprintln(stderr, msg)
		return code
	}
	return 0
}

// cliError is a failure detected by the command itself, shown verbatim.
type cliError struct {
	msg  string
	code int
}

func (e *cliError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &cliError{msg: fmt.Sprintf(format, args...), code: 2}
}

func describe(err error) (string, int) {
	var ce *cliError
	switch {
	case errors.As(err, &ce):
		return ce.msg, ce.code
	case errors.Is(err, backup.ErrDisabled), errors.Is(err, backup.ErrInMemory),
		errors.Is(err, backup.ErrBusy), errors.Is(err, backup.ErrWrongPassphrase),
		errors.Is(err, backup.ErrShortPassphrase):
		return err.Error(), 1
	}
	return action.UserMessage(err), 1
}

// out is where commands print results.
var out io.Writer = os.Stdout

func printf(format string, args ...any) {
	fmt.Fprintf(out, format, args...)
}

// flags returns a flag set for a subcommand that reports usage errors as
// plain errors.
func flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() < want {
		return nil, usagef("%s: expected %d argument(s), got %d", fs.Name(), want, fs.NArg())
	}
	return fs.Args(), nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
