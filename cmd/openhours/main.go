package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datagora/openhours/internal/profile"
)

const version = "0.6.0"

var (
	rootCmd = &cobra.Command{
		Use:   "openhours",
		Short: "Opening hours verification pipeline",
		Long: `openhours checks the opening hours published on facility websites
against the opening_hours strings of a reference dataset. It fetches each
page, extracts a structured schedule, encodes it back to opening_hours
syntax and reports whether the two sides agree.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadProfile()
		},
	}

	instanceProfile *profile.Profile
)

func init() {
	viper.SetEnvPrefix("openhours")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the instance, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the report server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the report server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// loadProfile assembles the instance profile from flags and environment.
func loadProfile() error {
	instanceProfile = &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if instanceProfile.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
