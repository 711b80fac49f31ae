package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/mxbridge/config"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/loopback"
	"github.com/wippyai/mxbridge/runtime"
	"github.com/wippyai/mxbridge/transcoder"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// putFlags collects repeated -put name=json arguments.
type putFlags []string

func (p *putFlags) String() string { return strings.Join(*p, ",") }

func (p *putFlags) Set(v string) error {
	*p = append(*p, v)
	return nil
}

type options struct {
	configPath  string
	expr        string
	get         string
	puts        putFlags
	id          float64
	idSet       bool
	interactive bool
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("mxeng", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to YAML config file")
	fs.Float64Var(&o.id, "id", 0, "Session id; equal ids share one engine connection")
	fs.StringVar(&o.expr, "e", "", "Statements to evaluate")
	fs.StringVar(&o.get, "get", "", "Variable to print as JSON")
	fs.Var(&o.puts, "put", "Assign a variable from JSON (name=json, repeatable)")
	fs.BoolVar(&o.interactive, "i", false, "Interactive console")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: mxeng [-config file] [-id n] [-put name=json ...] [-e statements] [-get name]")
		fmt.Fprintln(stderr, "       mxeng -i  (interactive console)")
		fmt.Fprintln(stderr, "       mxeng < script  (one statement per line)")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "id" {
			o.idSet = true
		}
	})
	return o, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if err := execute(o, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(o *options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.idSet {
		cfg.Session.ID = o.id
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func execute(o *options, stdin io.Reader, stdout io.Writer) (err error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt := runtime.New(loopback.New(loopback.WithLogger(logger)), runtime.WithLogger(logger))
	defer func() {
		if cerr := rt.Close(); err == nil {
			err = cerr
		}
	}()

	ctx := context.Background()
	eng, err := rt.Open(ctx, cfg.EngineOptions())
	if err != nil {
		return err
	}
	defer eng.Close()

	for _, p := range o.puts {
		if err := putJSON(ctx, eng, p); err != nil {
			return err
		}
	}

	switch {
	case o.interactive:
		return runInteractive(eng, logger)
	case o.expr != "" || o.get != "":
		if o.expr != "" {
			if err := evaluate(ctx, eng, o.expr, stdout); err != nil {
				return err
			}
		}
		if o.get != "" {
			return printVariable(ctx, eng, o.get, stdout)
		}
		return nil
	}

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return runInteractive(eng, logger)
	}
	return runLines(ctx, eng, stdin, stdout)
}

// splitPut parses a -put argument of the form name=json.
func splitPut(arg string) (string, []byte, error) {
	name, value, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("-put %q: want name=json", arg))
	}
	return name, []byte(value), nil
}

func putJSON(ctx context.Context, eng *runtime.Engine, arg string) error {
	name, data, err := splitPut(arg)
	if err != nil {
		return err
	}
	value, err := transcoder.ParseJSON(data)
	if err != nil {
		return fmt.Errorf("-put %s: %w", name, err)
	}
	return eng.PutVariable(ctx, name, value)
}

func evaluate(ctx context.Context, eng *runtime.Engine, expr string, stdout io.Writer) error {
	out, err := eng.Evaluate(ctx, expr)
	if out != "" {
		fmt.Fprint(stdout, out)
	}
	return err
}

func printVariable(ctx context.Context, eng *runtime.Engine, name string, stdout io.Writer) error {
	v, err := eng.GetVariable(ctx, name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// runLines evaluates each non-empty stdin line. A failed line does not stop
// the loop; the last failure is returned.
func runLines(ctx context.Context, eng *runtime.Engine, stdin io.Reader, stdout io.Writer) error {
	var last error
	sc := bufio.NewScanner(stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := evaluate(ctx, eng, line, stdout); err != nil {
			last = err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return last
}
