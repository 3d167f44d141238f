// Package main is the entrypoint for the sitecontrol admin CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zapfragrance/sitecontrol/internal/auth"
	"github.com/zapfragrance/sitecontrol/internal/branding"
	"github.com/zapfragrance/sitecontrol/internal/cache"
	"github.com/zapfragrance/sitecontrol/internal/config"
	"github.com/zapfragrance/sitecontrol/internal/db"
	"github.com/zapfragrance/sitecontrol/internal/models"
	"github.com/zapfragrance/sitecontrol/internal/settings"
	"github.com/zapfragrance/sitecontrol/internal/theme"
	"gopkg.in/yaml.v3"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	envFile     string
	configPath  string
	databaseURL string
	verbose     bool
	profile     *config.CLIConfig
}

// loadProfile reads the CLI profile from --config or the default path.
func (o *globalOptions) loadProfile() error {
	if o.configPath == "" {
		path, err := config.DefaultCLIConfigPath()
		if err != nil {
			return err
		}
		o.configPath = path
	}
	profile, err := config.LoadCLIConfig(o.configPath)
	if err != nil {
		return err
	}
	o.profile = profile
	return nil
}

func (o *globalOptions) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func (o *globalOptions) url() (string, error) {
	if o.databaseURL != "" {
		return o.databaseURL, nil
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	if o.profile != nil && o.profile.DatabaseURL != "" {
		return o.profile.DatabaseURL, nil
	}
	return "", errors.New("database URL required: use --db, set DATABASE_URL or run 'sitecontrol config set database_url <url>'")
}

func (o *globalOptions) connect(ctx context.Context) (*db.DB, error) {
	url, err := o.url()
	if err != nil {
		return nil, err
	}
	cfg := db.DefaultConfig(url)
	cfg.MaxConns = 2
	return db.New(ctx, cfg, o.logger())
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          "sitecontrol",
		Short:        "Administer the sitecontrol settings service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFile); err != nil {
				return err
			}
			return opts.loadProfile()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Env file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "CLI profile path (default ~/.sitecontrol/config.yml)")
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "db", "", "Database URL (or set DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newMigrateCmd(opts),
		newAdminCmd(opts),
		newSettingsCmd(opts),
		newAuditCmd(opts),
		newConfigCmd(opts),
		newHashPasswordCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitecontrol %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Commit:     %s\n", Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  Built:      %s\n", BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  Go version: %s\n", runtime.Version())
		},
	}
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	var list, showVersion, status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				migrations, err := db.GetMigrations()
				if err != nil {
					return fmt.Errorf("list migrations: %w", err)
				}
				fmt.Fprintln(out, "Available migrations:")
				for _, m := range migrations {
					fmt.Fprintf(out, "  %s\n", m.Name)
				}
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if status {
				pending, err := database.PendingMigrations(ctx)
				if err != nil {
					return fmt.Errorf("check migrations: %w", err)
				}
				if len(pending) == 0 {
					fmt.Fprintln(out, "Schema is up to date")
				}
				for _, m := range pending {
					fmt.Fprintf(out, "  pending: %s\n", m.Name)
				}
			} else if !showVersion {
				if err := database.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			version, err := database.CurrentVersion(ctx)
			if err != nil {
				return fmt.Errorf("get schema version: %w", err)
			}
			fmt.Fprintf(out, "Current schema version: %d\n", version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List embedded migrations without connecting")
	cmd.Flags().BoolVar(&showVersion, "version", false, "Show the current schema version only")
	cmd.Flags().BoolVar(&status, "status", false, "List migrations not yet applied")

	return cmd
}

func newAdminCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(opts), newAdminListCmd(opts))
	return cmd
}

func newAdminCreateCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin or reset an existing admin's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				var err error
				password, err = promptLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			admin := models.NewAdmin(email, hash)
			if err := database.UpsertAdmin(ctx, admin); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s saved\n", admin.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted when empty)")

	return cmd
}

func newAdminListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			admins, err := database.ListAdmins(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(admins) == 0 {
				fmt.Fprintln(out, "No admins")
				return nil
			}
			for _, a := range admins {
				fmt.Fprintf(out, "%s\t%s\tcreated %s\n", a.ID, a.Email, a.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// settingsReport is the YAML shape printed by `settings show`.
type settingsReport struct {
	Source    string              `yaml:"source"`
	Settings  models.SiteSettings `yaml:"settings"`
	Variables theme.Variables     `yaml:"variables"`
}

func newSettingsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change site settings",
	}
	cmd.AddCommand(newSettingsShowCmd(opts), newSettingsSetCmd(opts))
	return cmd
}

func newSettingsShowCmd(opts *globalOptions) *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Resolve the settings the server would load and print them as YAML",
		Long: `Resolve the settings the way the server does at startup: the remote
record first, then the local cache (--cache or the profile's cache_path), then
the defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			logger := opts.logger()
			deps := settings.Deps{}

			if _, err := opts.url(); err == nil {
				database, err := opts.connect(ctx)
				if err != nil {
					logger.Warn().Err(err).Msg("remote store unavailable")
				} else {
					defer database.Close()
					deps.Remote = database
				}
			}
			if cachePath == "" {
				cachePath = opts.profile.CachePath
			}
			if cachePath != "" {
				c, err := cache.NewSQLiteCache(cachePath, logger)
				if err != nil {
					return err
				}
				defer c.Close()
				deps.Cache = c
			}

			manager := settings.NewManager(settings.DefaultConfig(), deps, logger)
			source := manager.Load(ctx)
			current := manager.Snapshot()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(settingsReport{
				Source:    source,
				Settings:  current,
				Variables: theme.DeriveVariables(current),
			})
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache", "", "Path to a local settings cache to fall back to")

	return cmd
}

func newSettingsSetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Write a single field directly to the remote settings record",
		Long: `Write a single field directly to the remote settings record.
Fields: accent_color, day_image_url, night_image_url, theme_mode.
Running servers pick the change up on their next load.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value := models.Field(args[0]), args[1]
			if err := branding.ValidateField(field, value); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			rec, err := database.FetchSiteSettings(ctx)
			if err != nil {
				return err
			}
			current := models.DefaultSiteSettings()
			if rec != nil {
				current = rec.Resolve(current)
			}

			updated, ok := current.With(field, value)
			if !ok {
				return fmt.Errorf("unknown field %q", field)
			}

			next := updated.Record()
			if err := database.UpsertSiteSettings(ctx, &next); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", field, value)
			return nil
		},
	}
}

func newAuditCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the admin audit trail",
	}
	cmd.AddCommand(newAuditListCmd(opts))
	return cmd
}

func newAuditListCmd(opts *globalOptions) *cobra.Command {
	var (
		action string
		email  string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print recent admin actions as YAML, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			logs, err := database.ListAuditLogs(ctx, db.AuditLogFilter{
				Action: models.AuditAction(action),
				Email:  strings.ToLower(email),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit entries")
				return nil
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(logs)
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Only show this action (e.g. settings.save)")
	cmd.Flags().StringVar(&email, "email", "", "Only show actions by this admin")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")

	return cmd
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the CLI profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the CLI profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", opts.configPath)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(opts.profile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set database_url or cache_path in the CLI profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.profile.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := opts.profile.Save(opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], opts.configPath)
			return nil
		},
	})

	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				var err error
				password, err = promptLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// promptLine reads one line from the command's input.
func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
