// cmd/cli/main.go inspects and edits the bot's guild settings offline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"guild-music/internal/config"
	"guild-music/internal/storage"
	"guild-music/pkg/cmd"
)

var errNoStorage = errors.New("invocation carries no storage")

func storageFrom(inv *cmd.Invocation) (*storage.Storage, error) {
	store, ok := inv.Data.(*storage.Storage)
	if !ok || store == nil {
		return nil, errNoStorage
	}
	return store, nil
}

type historyCommand struct{}

func (historyCommand) Name() string        { return "history" }
func (historyCommand) Description() string { return "history <guild>: list recent commands" }

func (historyCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	store, err := storageFrom(inv)
	if err != nil {
		return err
	}
	if len(inv.Args) != 1 {
		return errors.New("usage: history <guild>")
	}
	records, err := store.CommandHistory(inv.Args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Datetime.Format("2006-01-02 15:04:05"), r.Username, r.Command, r.Param)
	}
	return w.Flush()
}

type volumeCommand struct{}

func (volumeCommand) Name() string        { return "volume" }
func (volumeCommand) Description() string { return "volume <guild> [1-10]: show or set the stored volume" }

func (volumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	store, err := storageFrom(inv)
	if err != nil {
		return err
	}
	switch len(inv.Args) {
	case 1:
		fmt.Println(store.Volume(inv.Args[0]))
		return nil
	case 2:
		v, err := strconv.Atoi(inv.Args[1])
		if err != nil || v < 1 || v > 10 {
			return errors.New("volume must be between 1 and 10")
		}
		return store.SetVolume(inv.Args[0], v)
	default:
		return errors.New("usage: volume <guild> [1-10]")
	}
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	cfg, err := config.NewStorage()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	path := flag.String("storage", cfg.StoragePath, "path to the datastore file")

	registry := cmd.NewRegistry()
	registry.Register(historyCommand{})
	registry.Register(volumeCommand{})

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-storage path] <command> [args]\n\n", os.Args[0])
		for _, c := range registry.GetAll() {
			fmt.Fprintf(flag.CommandLine.Output(), "  %s\n", c.Description())
		}
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	c := registry.Get(flag.Arg(0))
	if c == nil {
		flag.Usage()
		os.Exit(2)
	}

	store, err := storage.New(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runErr := c.Run(context.Background(), &cmd.Invocation{Args: flag.Args()[1:], Data: store})
	if err := store.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
