package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fathomworks/memvault/internal/config"
)

var (
	resolveWorkspace bool
	resolveDimension int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve and validate the vector store configuration",
	Long: `Resolve the vector store configuration from the environment and
print it as JSON, including the validation result and, when a remote
backend was downgraded to in-memory, the fallback origin.

Examples:
  # Resolve the knowledge collection config
  memvault resolve

  # Resolve the workspace variant
  memvault resolve --workspace

  # Resolve with an embedder-imposed dimension
  memvault resolve --dimension 768`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveWorkspace, "workspace", false, "resolve the WORKSPACE_ prefixed variant")
	resolveCmd.Flags().IntVar(&resolveDimension, "dimension", 0, "dimension override from the embedding model")
}

// resolveReport is the JSON document printed by resolve.
type resolveReport struct {
	Config           config.BackendConfig `json:"config"`
	Valid            bool                 `json:"valid"`
	ValidationErrors []string             `json:"validationErrors,omitempty"`
	Reflection       string               `json:"reflectionCollection,omitempty"`
	WorkspaceMemory  bool                 `json:"workspaceMemoryEnabled"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := newSource()
	if err != nil {
		return err
	}

	var opts []config.ResolveOption
	if resolveDimension > 0 {
		opts = append(opts, config.WithDimensionOverride(resolveDimension))
	}

	resolver := config.NewResolver(logger)
	var cfg config.BackendConfig
	if resolveWorkspace {
		cfg = resolver.ResolveWorkspace(src, opts...)
	} else {
		cfg = resolver.Resolve(src, opts...)
	}

	report := resolveReport{
		Config:          cfg,
		Valid:           true,
		Reflection:      config.ReflectionCollection(src),
		WorkspaceMemory: config.WorkspaceEnabled(src),
	}
	if err := config.Validate(cfg); err != nil {
		report.Valid = false
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, v := range verrs {
				report.ValidationErrors = append(report.ValidationErrors, v.Error())
			}
		} else {
			report.ValidationErrors = append(report.ValidationErrors, err.Error())
		}
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
