package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"postimport/internal/app"
	"postimport/internal/domain/config"
	"postimport/internal/logging"
)

type CLI struct {
	Config   string `help:"Path to the YAML configuration file." default:"postimport.yaml" type:"path"`
	Drafts   bool   `help:"Import drafts instead of published posts."`
	NoUpdate bool   `help:"Use the local checkout as-is instead of cloning or pulling."`
	Workers  int    `help:"Documents imported in parallel (0 keeps the configured value)."`

	Import ImportCmd `cmd:"" default:"1" help:"Sync the post repository and import every post once."`
	Watch  WatchCmd  `cmd:"" help:"Import once, then re-import whenever the posts change."`
}

type session struct {
	ctx context.Context
	app *app.App
}

type ImportCmd struct{}

func (c *ImportCmd) Run(rt *session) error {
	res, err := rt.app.Import(rt.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d posts (%d failed)\n", res.Imported, len(res.Failed))
	return nil
}

type WatchCmd struct{}

func (c *WatchCmd) Run(rt *session) error {
	return rt.app.Watch(rt.ctx)
}

func (cli *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return cfg, err
	}
	if cli.Drafts {
		cfg.Source.IncludeDrafts = true
	}
	if cli.NoUpdate {
		cfg.Source.Update = false
	}
	if cli.Workers > 0 {
		cfg.Pipeline.Workers = cli.Workers
	}
	return cfg, cfg.Validate()
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("postimport"),
		kong.Description("Import a git-hosted blog corpus into a post store."),
		kong.UsageOnError(),
	)

	cfg, err := cli.loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logs, err := logging.NewProvider(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, logs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init error:", err.Error())
		os.Exit(1)
	}

	err = kctx.Run(&session{ctx: ctx, app: a})
	if cerr := a.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "close error:", cerr.Error())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
