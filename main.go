package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cogbot/cmd"
	"cogbot/cmd/debug"
	"cogbot/config"
	"cogbot/database"
	"cogbot/infrastructure"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error: ", err)
		}
		return
	}

	// Check for debug shell
	if len(os.Args) > 1 && os.Args[1] == "debug" {
		if err := runDebugShell(); err != nil {
			log.Fatal("Debug shell error: ", err)
		}
		return
	}

	// Normal bot operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Run the application
	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: cogbot migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

// runDebugShell connects to the running bot's debug API and the database
func runDebugShell() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Get()
	if cfg.DebugAPIPort <= 0 {
		return fmt.Errorf("DEBUG_API_PORT is not set")
	}

	client := debug.NewDebugClient(fmt.Sprintf("http://127.0.0.1:%d", cfg.DebugAPIPort))
	if err := client.CheckConnection(); err != nil {
		return fmt.Errorf("bot is not reachable, check that it runs with the debug API enabled: %w", err)
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Events raised from the shell are not published
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())

	fmt.Println("cogbot debug shell. Type 'help' for commands.")
	return debug.NewShell(client, uowFactory, os.Stdout).Run(ctx, os.Stdin)
}
