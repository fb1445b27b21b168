package main

import (
	"os"

	"pawco/internal/cli"
	"pawco/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap()
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	svc := services.NewLedgerService(repo, nil)

	a := &app{ledger: svc, dbPath: cfg.SQLiteDBPath}
	err := newRootCmd(a).Execute()
	if cerr := svc.Close(); cerr != nil {
		logger.Error("Failed to close ledger", "error", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
