// Command workschedule serves the schedule API and runs maintenance
// tasks against the schedule store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/theme"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, cfg *model.AppConfig, args []string) error
}

var commands = []command{
	{"serve", "run the HTTP API", runServe},
	{"list", "print the schedule days and their status", runList},
	{"export", "write a text, ics or xlsx report", runExport},
	{"export-text", "write the plain text report", runExportText},
	{"send", "send one day to QB Time", runSend},
	{"copy", "duplicate a day with fresh ids", runCopy},
	{"backup", "write the collection to a JSON backup file", runBackup},
	{"restore", "replace the collection from a JSON backup file", runRestore},
	{"prune", "keep only the newest days", runPrune},
	{"day", "edit days, project managers and assignments", runDay},
	{"cache", "inspect or clear the local schedule cache (info|clear)", runCache},
	{"token", "manage the QB Time token in the system keyring (set|delete|status)", runToken},
}

// configFile is the path given by -config, used when settings are
// written back.
var configFile string

func usage() {
	fmt.Fprintf(os.Stderr, "usage: workschedule [-config path] <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", c.name, c.summary)
	}
}

func main() {
	flag.StringVar(&configFile, "config", model.DefaultConfigPath(), "Path to config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := model.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, args := flag.Arg(0), flag.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, cfg, args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				os.Exit(2)
			}
			fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render(err.Error()))
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}
