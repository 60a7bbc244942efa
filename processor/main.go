// Command dockctl runs operator tasks against the FreshDock database.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"freshdock/config"
	"freshdock/controllers/idgen"
	"freshdock/database"
	"freshdock/logger"
	"freshdock/migration"
	"freshdock/models"
	"freshdock/repositories"
	"freshdock/services"
	"freshdock/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type cli struct {
	log *zap.Logger
	db  *gorm.DB
}

func main() {
	c := &cli{}
	if err := c.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dockctl",
		Short:         "Operator tools for FreshDock",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig()
			c.log = logger.New(config.LogLevel)
			if err := idgen.Init(int64(config.SnowflakeNode)); err != nil {
				return fmt.Errorf("init id generator: %w", err)
			}
			db, err := database.Open()
			if err != nil {
				return err
			}
			c.db = db
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.AddCommand(c.migrateCmd(), c.seedCmd(), c.adviceCmd(), c.exportCmd(), c.businessesCmd())
	return root
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migration.Migrate(c.db); err != nil {
				return err
			}
			c.log.Info("schema up to date")
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert seed businesses, users and connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read seed file: %w", err)
				}
				raw = b
			}
			seed, err := database.ParseSeed(raw)
			if err != nil {
				return err
			}
			return database.RunSeeders(c.db, seed, c.log)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (defaults to the built-in seed)")
	return cmd
}

func (c *cli) adviceCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "advice <dispatch-id>",
		Short: "Render a delivery-advice PDF to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := types.ParseSnowflakeID(args[0])
			if err != nil {
				return fmt.Errorf("invalid dispatch id %q", args[0])
			}
			advice := services.NewAdviceService(c.db, nil, config.PublicBaseURL, c.log.Named("advice"))
			doc, err := advice.Generate(cmd.Context(), models.SystemSession(), id)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			path := filepath.Join(out, doc.Filename)
			if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "output directory")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		businessID uint
		status     string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one business's dispatch register as xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := repositories.NewBusinessRepository(c.db).GetByID(cmd.Context(), businessID)
			if err != nil {
				return fmt.Errorf("business %d: %w", businessID, err)
			}
			if out == "" {
				out = fmt.Sprintf("dispatches-%d.xlsx", b.ID)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			dispatches := services.NewDispatchService(c.db, nil, c.log.Named("dispatch"))
			export := services.NewExportService(dispatches, c.db)
			if err := export.WriteRegister(cmd.Context(), services.BusinessSession(b), status, f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().UintVar(&businessID, "business", 0, "business id")
	cmd.Flags().StringVar(&status, "status", "", "only dispatches in this status")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	_ = cmd.MarkFlagRequired("business")
	return cmd
}

func (c *cli) businessesCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "businesses",
		Short: "List businesses of one type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := models.ParseBusinessType(kind)
			if err != nil {
				return err
			}
			list, err := repositories.NewBusinessRepository(c.db).ListByType(context.Background(), t)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONTACT\tREGION")
			for _, b := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", b.ID, b.Name, b.ContactEmail, b.Region)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(models.BusinessReceiver), "receiver or supplier")
	return cmd
}
