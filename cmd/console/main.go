package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/app"
	"basegraph.app/intake/internal/console"
	"basegraph.app/intake/internal/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(config.ServiceTypeConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetupWithWriter(cfg, os.Stderr)

	if err := id.Init(cfg.NodeID); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize id generator: %v\n", err)
		os.Exit(1)
	}

	user := getEnv("CONSOLE_USER", "local")
	term := console.New(os.Stdout, model.Identity{UserID: user, ChannelID: "console"})

	a, err := app.New(ctx, cfg, term)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "\nIntake console ready (tracker=%s, user=%s)\n", cfg.Tracker.Provider, user)
	fmt.Fprintln(os.Stderr, "Describe the ticket you need, type a number to pick an option, 'history' for past requests, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" || line == "q" {
			break
		}
		if line == "history" {
			printHistory(ctx, a, user)
			continue
		}

		outcome := a.Machine.Handle(ctx, term.Event(line))
		if outcome.Err != nil {
			fmt.Fprintf(os.Stderr, "(%s: %v)\n", outcome.Status, outcome.Err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintln(os.Stderr, "Goodbye!")
}

func printHistory(ctx context.Context, a *app.App, user string) {
	outcomes, err := a.Stores.Outcomes.ListByUser(ctx, user, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "(failed to load history: %v)\n", err)
		return
	}
	if len(outcomes) == 0 {
		fmt.Println("No recorded requests. Outcomes are only kept when DATABASE_URL is set.")
		return
	}
	for _, o := range outcomes {
		ref := ""
		switch {
		case o.TicketKey != nil:
			ref = " " + *o.TicketKey
		case o.DuplicateOf != nil:
			ref = " duplicate of " + *o.DuplicateOf
		}
		fmt.Printf("%s  %-9s%s  %s\n", o.CreatedAt.Format("2006-01-02 15:04"), o.Kind, ref, o.Summary)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
