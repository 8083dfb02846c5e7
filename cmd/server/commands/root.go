package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/warp/compliance-engine/config"
	"github.com/warp/compliance-engine/logging"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	v   = config.New()
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "compliance-server",
	Short: "Multi-tenant compliance training engine",
	Long: `Serves compliance, overdue, completion and skills-matrix reports over
tenant-scoped training data, with per-tenant lookup overrides and a
background sweep that marks overdue work and sends reminders.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		if err := logging.Init(logging.Options{Verbose: cfg.Verbose, Dir: cfg.LogDir}); err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("compliance-server starting")
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "enable verbose logging")
	flags.String("db", "compliance.db", `SQLite database path (":memory:" for in-memory)`)
	flags.String("log-dir", "logs", `rotating log directory ("" disables file logging)`)
	flags.String("config", "", "optional config file (yaml, json or toml)")

	bindFlag(config.KeyVerbose, flags.Lookup("verbose"))
	bindFlag(config.KeyDB, flags.Lookup("db"))
	bindFlag(config.KeyLogDir, flags.Lookup("log-dir"))
	bindFlag(config.KeyConfigFile, flags.Lookup("config"))

	rootCmd.AddCommand(serveCmd, seedCmd, sweepCmd)
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
