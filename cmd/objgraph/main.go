// Command objgraph loads tagged JSON object graphs against a set of class
// manifests and reports what was built.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/objgraph/internal/config"
	"github.com/zeusync/objgraph/internal/core/engine"
	"github.com/zeusync/objgraph/internal/injector"
)

const usage = `usage: objgraph [-config file] <command> [args]

commands:
  classes        list registered classes and their properties
  load <file>    deserialize file, resolve assets, print a report
  clone <file>   like load, then instantiate the root and report the copy
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("objgraph", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	e, err := injector.InitializeEngine(cfg)
	if err != nil {
		return err
	}
	if err = e.Assets().Preload(ctx, cfg.Assets.Preload); err != nil {
		return fmt.Errorf("preload assets: %w", err)
	}

	switch cmd := fs.Arg(0); cmd {
	case "classes":
		return write(out, classReport(e.Registry()))
	case "load", "clone":
		if fs.NArg() != 2 {
			return fmt.Errorf("%s needs exactly one file", cmd)
		}
		return loadCommand(ctx, e, fs.Arg(1), cmd == "clone", out)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadCommand(ctx context.Context, e *engine.Engine, path string, clone bool, out io.Writer) error {
	root, res, err := e.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	rep := graphReport(root)
	rep.Unresolved = res.UUIDList
	rep.RawProp = res.RawProp
	for _, err := range res.Errors {
		rep.Errors = append(rep.Errors, err.Error())
	}
	if clone {
		copied, err := e.Instantiate(root)
		if err != nil {
			return err
		}
		c := graphReport(copied)
		rep.Clone = &c
	}
	return write(out, rep)
}

func write(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
