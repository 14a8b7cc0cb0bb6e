package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/memory"
	"github.com/fathomworks/memvault/internal/services"
	"github.com/fathomworks/memvault/internal/vectorstore"
)

var connectTimeout time.Duration

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to every configured collection and report status",
	Long: `Perform a full orchestrated connect through the service cache:
resolve the configuration, construct every enabled collection
(knowledge, reflection, workspace), ping each backend, then
disconnect. Prints a per-collection status report as JSON.

Examples:
  # Smoke-test the configured backends
  memvault connect

  # With a shorter deadline
  memvault connect --timeout 5s`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 30*time.Second, "overall connect deadline")
}

// collectionStatus is one row of the connect report.
type collectionStatus struct {
	Slot       string             `json:"slot"`
	Collection string             `json:"collection"`
	Backend    config.BackendType `json:"backend"`
	Documents  int                `json:"documents"`
	Ping       string             `json:"ping"`
}

func runConnect(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := newSource()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
	defer cancel()

	cache := services.NewCache(logger)
	defer cache.Close()

	mgr, err := services.Open(ctx, cache, src, services.OpenOptions{
		Factory: vectorstore.NewFactory(logger),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	report := make([]collectionStatus, 0, 3)
	for _, name := range []string{
		memory.CollectionKnowledge,
		memory.CollectionReflection,
		memory.CollectionWorkspace,
	} {
		store := mgr.Store(name)
		if store == nil {
			continue
		}
		report = append(report, statusFor(ctx, name, store))
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func statusFor(ctx context.Context, name string, store vectorstore.Store) collectionStatus {
	status := collectionStatus{
		Slot:       name,
		Collection: store.Collection(),
		Backend:    store.Backend(),
		Ping:       "ok",
	}
	if err := store.Ping(ctx); err != nil {
		status.Ping = err.Error()
		return status
	}
	if n, err := store.Count(ctx); err == nil {
		status.Documents = n
	}
	return status
}
