package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/presenter/internal/config"
	"github.com/1broseidon/presenter/internal/fetch"
	"github.com/1broseidon/presenter/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "projector":
		os.Exit(runProjector(os.Args[2:]))
	case "update":
		os.Exit(runUpdate(os.Args[2:]))
	case "fetch":
		os.Exit(runFetch(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "palette":
		os.Exit(runPalette(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: presenter <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the presenter daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  monitors            List attached monitors")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  projector open      Open the projector window")
	fmt.Fprintln(w, "  projector close     Close the projector window")
	fmt.Fprintln(w, "  update              Send a slide payload to the projector")
	fmt.Fprintln(w, "  fetch               Fetch a URL with a browser header profile")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  palette             Pick the projector monitor from rofi/dmenu")
	fmt.Fprintln(w, "  tui                 Open interactive TUI")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'presenter <command> --help' for command-specific options.")
}

// parseFlags parses args into fs and reports an exit code when parsing
// should stop the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: presenter status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(status)
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("projector_open: %v\n", status.ProjectorOpen)
	fmt.Printf("monitors:       %d\n", status.Monitors)
	fmt.Printf("fetch_profile:  %s\n", status.FetchProfile)
	if status.RemoteEnabled {
		fmt.Printf("remote_clients: %d\n", status.RemoteClients)
	}
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print monitors with geometry as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: presenter monitors [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List attached monitors. The index is the value accepted by")
		fmt.Fprintln(os.Stderr, "'presenter projector open --monitor'.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	data, err := ipc.NewClient().ListMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data)
	}
	for _, m := range data.Monitors {
		fmt.Printf("%d  %-24s %s  +%d+%d\n", m.Index, m.Label, m.Name, m.X, m.Y)
	}
	return 0
}

func printProjectorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  presenter projector open [--monitor N]")
	fmt.Fprintln(w, "  presenter projector close")
}

func runProjector(args []string) int {
	if len(args) == 0 {
		printProjectorUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "open":
		fs := flag.NewFlagSet("projector open", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		monitor := fs.Int("monitor", -1, "Zero-based monitor index (omit for window manager placement)")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}

		var index *int
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "monitor" {
				index = monitor
			}
		})
		if err := ipc.NewClient().OpenProjector(index); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "close":
		if len(args) > 1 {
			fmt.Fprintln(os.Stderr, "projector close takes no arguments")
			return 2
		}
		if err := ipc.NewClient().CloseProjector(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "help", "-h", "--help":
		printProjectorUsage(os.Stdout)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown projector command: %s\n\n", args[0])
		printProjectorUsage(os.Stderr)
		return 2
	}
}

func runUpdate(args []string) int {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: presenter update <payload|->")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Send a slide payload to the projector window. Use '-' to read it from stdin;")
		fmt.Fprintln(os.Stderr, "a single trailing newline is dropped, everything else is sent as-is.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	payload := fs.Arg(0)
	if payload == "-" {
		var err error
		payload, err = readPayload(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stdin: %v\n", err)
			return 1
		}
	}

	if err := ipc.NewClient().UpdateProjector(payload); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// readPayload reads a slide payload, dropping the one line terminator that
// echo and heredocs append.
func readPayload(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	payload := string(data)
	if rest, ok := strings.CutSuffix(payload, "\n"); ok {
		payload = strings.TrimSuffix(rest, "\r")
	}
	return payload, nil
}

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	profileName := fs.String("profile", "", "Header profile from config (runs locally instead of through the daemon)")
	path := fs.String("path", "", "Config file path used with --profile")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: presenter fetch [--profile NAME [--path PATH]] <url>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Fetch a URL and print the body. Without --profile the daemon's")
		fmt.Fprintln(os.Stderr, "default profile is used.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	url := fs.Arg(0)

	if *profileName == "" {
		body, err := ipc.NewClient().FetchContent(url)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(body)
		return 0
	}

	res, err := loadConfigAt(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	profile, err := fetch.ProfileFromConfig(res.Config.Fetch, *profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	body, err := fetch.New(profile, fetch.WithTimeout(res.Config.Fetch.Timeout())).Fetch(context.Background(), url)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(body)
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  presenter config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  presenter config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/presenter/config.yaml)")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}

		res, err := loadConfigAt(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if res.File == "" {
			fmt.Println("config: ok (no config file, using defaults)")
			return 0
		}
		fmt.Printf("config: ok (%s)\n", res.File)
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/presenter/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfigAt(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
			if res.File != "" {
				fmt.Printf("# file: %s\n", res.File)
			}
			if res.EnvFile != "" {
				fmt.Printf("# env:  %s\n", res.EnvFile)
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func loadConfigAt(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
