// Command k2ctl is the weighbridge operator console.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/config"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/weighment"
)

// command is one k2ctl verb. Commands with standalone set run without the
// local store or a session.
type command struct {
	usage      string
	standalone bool
	run        func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":           {usage: "login --email <email> [--password <password>]", run: cmdLogin},
	"logout":          {usage: "logout", run: cmdLogout},
	"whoami":          {usage: "whoami", run: cmdWhoami},
	"entries list":    {usage: "entries list [--search q] [--type purchase|sale] [--range 24h|7d|30d] [--page n] [--limit n]", run: cmdEntriesList},
	"entries create":  {usage: "entries create --type <type> --vendor <name|id> --vehicle <number|id> --driver <name> --weight <kg> [--material <name|id>]", run: cmdEntriesCreate},
	"entries exit":    {usage: "entries exit <id|number> --weight <kg> [--moisture %] [--dust %] [--pallette loose|packed --bags n --per-bag kg]", run: cmdEntriesExit},
	"entries receipt": {usage: "entries receipt <id|number> [--out file.pdf]", run: cmdEntriesReceipt},
	"entries slip":    {usage: "entries slip <id|number> [--out file.pdf] [--plant name]", run: cmdEntriesSlip},
	"entries export":  {usage: "entries export [--out report.xlsx] [list filters]", run: cmdEntriesExport},
	"entries journal": {usage: "entries journal", run: cmdEntriesJournal},
	"options":         {usage: "options [vendors|vehicles|materials|plants] [--search q]", run: cmdOptions},
	"quality":         {usage: "quality [--moisture %] [--dust %]", standalone: true, run: cmdQuality},
	"version":         {usage: "version", standalone: true, run: cmdVersion},
	"serve-fake":      {usage: "serve-fake [--addr :5000]", standalone: true, run: cmdServeFake},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	global := pflag.NewFlagSet("k2ctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(errOut)
	configPath := global.String("config", os.Getenv("K2_CONFIG"), "config file (yaml, toml or json)")
	config.RegisterFlags(global)
	global.Usage = func() { usage(errOut, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	name, rest, ok := lookup(global.Args())
	if !ok {
		usage(errOut, global)
		return 2
	}
	cmd := commands[name]

	cfg, err := config.Load(*configPath, global)
	if err != nil {
		fmt.Fprintf(errOut, "k2ctl: %v\n", err)
		return 1
	}

	var a *app
	if cmd.standalone {
		a = &app{cfg: cfg, in: in, out: out}
	} else {
		a, err = newApp(cfg, in, out, errOut)
		if err != nil {
			fmt.Fprintf(errOut, "k2ctl: %v\n", err)
			return 1
		}
		defer a.close()
	}

	if err := cmd.run(ctx, a, rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		report(errOut, err)
		return 1
	}
	return 0
}

// lookup matches the longest command name at the front of args.
func lookup(args []string) (string, []string, bool) {
	if len(args) >= 2 {
		if _, ok := commands[args[0]+" "+args[1]]; ok {
			return args[0] + " " + args[1], args[2:], true
		}
	}
	if len(args) >= 1 {
		if _, ok := commands[args[0]]; ok {
			return args[0], args[1:], true
		}
	}
	return "", nil, false
}

// report prints the single operator-facing message for err.
func report(w io.Writer, err error) {
	var fields weighment.FieldErrors
	if errors.As(err, &fields) {
		fmt.Fprintln(w, "k2ctl: please fix the following:")
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, fields[k])
		}
		return
	}
	fmt.Fprintf(w, "k2ctl: %s\n", weighment.UserMessage(err, err.Error()))
}

func usage(w io.Writer, global *pflag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: k2ctl [global flags] <command> [flags]")
	fmt.Fprintln(w, "\ncommands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w, "\nglobal flags:")
	fmt.Fprint(w, strings.TrimRight(global.FlagUsages(), "\n")+"\n")
}
