package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ahitposter/Brovado/internal/api"
	"github.com/ahitposter/Brovado/internal/models"
	"github.com/ahitposter/Brovado/internal/session"
	"github.com/ahitposter/Brovado/pkg/config"
	"github.com/ahitposter/Brovado/pkg/eth"
)

type accountEntry struct {
	Address     string
	DisplayName string
	Active      bool
	Expired     bool
	ExpiresIn   string
}

type accountsReport struct {
	GeneratedAt  time.Time
	Environment  string
	DatabasePath string
	Accounts     []accountEntry
	DBSize       int64
	DBWALSize    int64
	DBSHMSize    int64
	Warnings     []string
}

type accountsOptions struct {
	JSON bool
}

func parseAccountsArgs(args []string) (accountsOptions, error) {
	opts := accountsOptions{}
	for _, arg := range args {
		switch arg {
		case "--json", "-j":
			opts.JSON = true
		default:
			return opts, fmt.Errorf("unknown accounts flag: %s", arg)
		}
	}
	return opts, nil
}

func runAccounts(cfg *config.Config, out io.Writer, args []string) error {
	opts, err := parseAccountsArgs(args)
	if err != nil {
		return err
	}

	report := collectAccounts(cfg)
	if opts.JSON {
		return printAccountsJSON(out, report)
	}
	printAccounts(out, report)
	return nil
}

func collectAccounts(cfg *config.Config) accountsReport {
	report := accountsReport{
		GeneratedAt:  time.Now(),
		Environment:  cfg.Environment,
		DatabasePath: cfg.DatabasePath,
	}

	if size, err := fileSize(cfg.DatabasePath); err == nil {
		report.DBSize = size
	}
	if size, err := fileSize(cfg.DatabasePath + "-wal"); err == nil {
		report.DBWALSize = size
	}
	if size, err := fileSize(cfg.DatabasePath + "-shm"); err == nil {
		report.DBSHMSize = size
	}

	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("session store unavailable: %v", err))
		return report
	}

	store, err := session.Open(cfg.DatabasePath)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("session store unavailable: %v", err))
		return report
	}
	defer store.Close()

	identities, err := store.Identities()
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("could not read identities: %v", err))
		return report
	}

	var active models.Identity
	if id, ok, err := store.Active(); err == nil && ok {
		active = id
	}

	now := time.Now()
	for _, id := range identities {
		report.Accounts = append(report.Accounts, accountEntry{
			Address:     displayAddress(id.Address),
			DisplayName: id.DisplayName,
			Active:      id.Address == active.Address,
			Expired:     id.Expired(now),
			ExpiresIn:   expiryLabel(id, now),
		})
	}
	return report
}

func displayAddress(addr string) string {
	if checksummed, err := eth.ChecksumAddress(addr); err == nil {
		return checksummed
	}
	return addr
}

func expiryLabel(id models.Identity, now time.Time) string {
	if id.ExpiresAt.IsZero() {
		return "unknown"
	}
	if id.Expired(now) {
		return "expired"
	}
	return models.TimeUntil(id.ExpiresAt, now)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}

func printAccounts(out io.Writer, report accountsReport) {
	fmt.Fprintln(out, "Brovado Accounts")
	fmt.Fprintf(out, "Generated at: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Environment : %s\n", report.Environment)
	fmt.Fprintf(out, "Store       : %s\n", report.DatabasePath)
	fmt.Fprintln(out)

	if len(report.Accounts) == 0 {
		fmt.Fprintln(out, "No stored identities. Run: brovado login <token>")
	}
	for _, account := range report.Accounts {
		marker := " "
		if account.Active {
			marker = "*"
		}
		name := account.DisplayName
		if name == "" {
			name = "-"
		}
		status := "expires in " + account.ExpiresIn
		if account.Expired {
			status = "EXPIRED"
		}
		fmt.Fprintf(out, "%s %s  %-20s %s\n", marker, account.Address, name, status)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Storage")
	fmt.Fprintf(out, "  DB file      : %d bytes\n", report.DBSize)
	fmt.Fprintf(out, "  DB footprint : %d bytes\n", report.DBSize+report.DBWALSize+report.DBSHMSize)

	for _, warning := range report.Warnings {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}
}

func printAccountsJSON(out io.Writer, report accountsReport) error {
	accounts := make([]map[string]any, 0, len(report.Accounts))
	for _, account := range report.Accounts {
		accounts = append(accounts, map[string]any{
			"address":      account.Address,
			"display_name": account.DisplayName,
			"active":       account.Active,
			"expired":      account.Expired,
			"expires_in":   account.ExpiresIn,
		})
	}

	payload := map[string]any{
		"generated_at":  report.GeneratedAt.Format(time.RFC3339),
		"environment":   report.Environment,
		"database_path": report.DatabasePath,
		"accounts":      accounts,
		"storage": map[string]any{
			"db_file_bytes":      report.DBSize,
			"db_wal_bytes":       report.DBWALSize,
			"db_shm_bytes":       report.DBSHMSize,
			"db_footprint_bytes": report.DBSize + report.DBWALSize + report.DBSHMSize,
		},
		"warnings": report.Warnings,
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func runLogin(cfg *config.Config, out io.Writer, args []string) error {
	var token string
	switch {
	case len(args) == 1:
		token = strings.TrimSpace(args[0])
	case len(args) == 3 && args[0] == "--signature":
		exchanged, err := exchangeSignature(cfg, args[1], args[2])
		if err != nil {
			return err
		}
		token = exchanged
	default:
		return fmt.Errorf("usage: brovado login <token> | login --signature <address> <signature>")
	}

	identity, err := session.IdentityFromToken(token)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveIdentity(identity); err != nil {
		return err
	}
	if err := store.SetActive(identity.Address); err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in as %s (expires in %s)\n",
		displayAddress(identity.Address), expiryLabel(identity, time.Now()))
	return nil
}

// exchangeSignature trades a wallet signature for a bearer token, for users
// who sign the login message themselves instead of pasting a token.
func exchangeSignature(cfg *config.Config, address, signature string) (string, error) {
	client, err := api.New(cfg.APIBaseURL, cfg.RPCURL, cfg.HTTPTimeout)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	return client.ExchangeSignature(ctx, address, signature)
}

func runLogout(cfg *config.Config, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: brovado logout <address>")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	address, err := resolveAddress(store, args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteIdentity(address); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s\n", displayAddress(address))
	return nil
}

func runUse(cfg *config.Config, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: brovado use <address>")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	address, err := resolveAddress(store, args[0])
	if err != nil {
		return err
	}
	if err := store.SetActive(address); err != nil {
		return err
	}
	fmt.Fprintf(out, "Active identity: %s\n", displayAddress(address))
	return nil
}

// resolveAddress maps user input onto the stored form of an identity's
// address, matching case-insensitively.
func resolveAddress(store *session.Store, input string) (string, error) {
	input = strings.TrimSpace(input)
	if !eth.ValidAddress(input) {
		return "", fmt.Errorf("invalid address: %s", input)
	}

	identities, err := store.Identities()
	if err != nil {
		return "", err
	}
	for _, id := range identities {
		if strings.EqualFold(id.Address, input) {
			return id.Address, nil
		}
	}
	return "", fmt.Errorf("no stored identity for %s", input)
}
