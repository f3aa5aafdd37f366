package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/ddxengine/internal/catalog"
	"github.com/Skufu/ddxengine/internal/inference"
	"github.com/Skufu/ddxengine/internal/logging"
	"github.com/Skufu/ddxengine/internal/store/pgstore"
	"github.com/Skufu/ddxengine/internal/store/sqlitestore"
)

var (
	verbose     bool
	dbPath      string
	catalogPath string
	encounterID string
	dialect     string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ddxctl",
	Short: "Manage reference data and run syndrome inference locally",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		l, err := logging.New(level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML catalog into a SQLite reference database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" || catalogPath == "" {
			return fmt.Errorf("--db and --catalog are required")
		}
		c, err := catalog.Load(catalogPath)
		if err != nil {
			return err
		}
		s, err := sqlitestore.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Seed(cmd.Context(), c); err != nil {
			return err
		}
		logger.Info("catalog seeded", zap.String("db", dbPath), zap.Int("syndromes", len(c.Syndromes)))
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d syndromes, %d links, %d constraints\n",
			len(c.Syndromes), len(c.Links), len(c.Constraints))
		return nil
	},
}

var inferCmd = &cobra.Command{
	Use:   "infer [symptom-id...]",
	Short: "Rank candidate syndromes for the given symptom ids and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		engine := inference.New(store, inference.WithLogger(logger))
		res, err := engine.Infer(cmd.Context(), inference.Case{
			EncounterID:        encounterID,
			ObservedSymptomIDs: args,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the reference-data DDL for a database dialect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch dialect {
		case "postgres":
			fmt.Fprint(cmd.OutOrStdout(), pgstore.Schema)
		case "sqlite":
			fmt.Fprint(cmd.OutOrStdout(), sqlitestore.Schema)
		default:
			return fmt.Errorf("unknown dialect %q (use postgres or sqlite)", dialect)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	seedCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	seedCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog path")

	inferCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	inferCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog path")
	inferCmd.Flags().StringVar(&encounterID, "encounter", "", "encounter id for log correlation")

	schemaCmd.Flags().StringVar(&dialect, "dialect", "postgres", "postgres or sqlite")

	rootCmd.AddCommand(seedCmd, inferCmd, schemaCmd)
}

func openStore() (inference.ReferenceStore, func(), error) {
	switch {
	case catalogPath != "" && dbPath != "":
		return nil, nil, fmt.Errorf("use either --catalog or --db, not both")
	case catalogPath != "":
		c, err := catalog.Load(catalogPath)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewStore(c), func() {}, nil
	case dbPath != "":
		s, err := sqlitestore.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("one of --catalog or --db is required")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
