// Package cli implements tourctl, a terminal client for the tour API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/demotours/tour-builder/internal/client/api"
	"github.com/demotours/tour-builder/internal/client/session"
)

// EnvServerURL overrides the default API address.
const EnvServerURL = "TOUR_API_URL"

const defaultServerURL = "http://localhost:5000"

var errUsage = errors.New("usage")

// App holds the wiring of one tourctl invocation.
type App struct {
	client *api.Client
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// rawInput is the terminal behind in, nil when input is not a terminal.
	rawInput *os.File

	readPassword func() (string, error)

	outMu sync.Mutex
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register": {"register", (*App).cmdRegister},
	"login":    {"login", (*App).cmdLogin},
	"logout":   {"logout", (*App).cmdLogout},
	"list":     {"list", (*App).cmdList},
	"stats":    {"stats", (*App).cmdStats},
	"delete":   {"delete <id>", (*App).cmdDelete},
	"new":      {"new --title T --description D [--step \"title|description|durationMs|imagePath\"]...", (*App).cmdNew},
	"play":     {"play [--public] [--autoplay] <id>", (*App).cmdPlay},
}

// Run parses the global flags and dispatches a sub-command. It returns the
// process exit code.
func Run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tourctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	server := fs.String("server", envOr(EnvServerURL, defaultServerURL), "tour API base URL")
	sessionPath := fs.String("session", "", "session file (default: user config dir)")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		printUsage(stderr)
		return 2
	}

	path := *sessionPath
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		path = p
	}

	a := NewApp(api.NewClient(*server, session.NewFileStore(path)), stdin, stdout, stderr)
	if isTerminal(stdin) {
		a.rawInput = stdin
	}
	return a.Execute(ctx, fs.Args())
}

// NewApp builds an App reading from in. Passwords are read from in as plain
// lines unless in is a terminal.
func NewApp(client *api.Client, in io.Reader, out, errOut io.Writer) *App {
	a := &App{
		client: client,
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
	}
	a.readPassword = a.passwordPrompt
	return a
}

// Execute runs one sub-command with its arguments.
func (a *App) Execute(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(a.errOut)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n", args[0])
		printUsage(a.errOut)
		return 2
	}
	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(a.errOut, "usage: tourctl %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(a.errOut, "error: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: tourctl [--server URL] [--session FILE] <command> [args]")
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
