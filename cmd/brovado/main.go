package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ahitposter/Brovado/internal/api"
	"github.com/ahitposter/Brovado/internal/session"
	"github.com/ahitposter/Brovado/internal/tui"
	"github.com/ahitposter/Brovado/pkg/config"
)

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 {
		if err := runCommand(cfg, os.Args[1:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := runClient(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func runCommand(cfg *config.Config, args []string) error {
	command := args[0]

	switch command {
	case "accounts":
		return runAccounts(cfg, os.Stdout, args[1:])
	case "login":
		return runLogin(cfg, os.Stdout, args[1:])
	case "logout":
		return runLogout(cfg, os.Stdout, args[1:])
	case "use":
		return runUse(cfg, os.Stdout, args[1:])
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  brovado                   Start the chat client")
	fmt.Fprintln(out, "  brovado login <token>     Store an identity from a bearer token")
	fmt.Fprintln(out, "  brovado login --signature <address> <signature>")
	fmt.Fprintln(out, "  brovado use <address>     Make a stored identity the active one")
	fmt.Fprintln(out, "  brovado logout <address>  Remove a stored identity")
	fmt.Fprintln(out, "  brovado accounts          Show stored identities")
	fmt.Fprintln(out, "  brovado accounts --json")
}

func runClient(cfg *config.Config) error {
	// The alternate screen owns the terminal; logs go to a file instead.
	logFile, err := redirectLogs(cfg.LogPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	identity, ok, err := store.Active()
	if err != nil {
		return fmt.Errorf("failed to read active identity: %w", err)
	}
	if !ok {
		identities, err := store.Identities()
		if err != nil {
			return fmt.Errorf("failed to read identities: %w", err)
		}
		if len(identities) == 0 {
			return fmt.Errorf("no stored identities; run: brovado login <token>")
		}
		identity = identities[0]
	}
	if !session.Usable(identity, time.Now()) {
		return fmt.Errorf("token for %s is expired; run: brovado login <token>", identity.Address)
	}

	client, err := api.New(cfg.APIBaseURL, cfg.RPCURL, cfg.HTTPTimeout)
	if err != nil {
		return err
	}
	client.SetToken(identity.Token)

	return tui.Run(*cfg, store, client, identity)
}

func openStore(cfg *config.Config) (*session.Store, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := session.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return store, nil
}

func redirectLogs(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}
