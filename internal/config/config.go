package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ja/internal/dirs"
)

// Settings are the values commands read back after flags, environment and
// the config file have been merged.
type Settings struct {
	Jobs        int
	Verbose     bool
	Ninja       string
	Status      string
	LockTimeout time.Duration
	History     bool
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: JA_*
	viper.SetEnvPrefix("JA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// Ninja's own variable wins over ours.
	_ = viper.BindEnv("status", "NINJA_STATUS", "JA_STATUS")

	viper.SetDefault("history", true)

	flags := root.PersistentFlags()
	_ = viper.BindPFlag("jobs", root.Flags().Lookup("jobs"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("ninja", flags.Lookup("ninja"))
	_ = viper.BindPFlag("status", flags.Lookup("status"))
	_ = viper.BindPFlag("lock_timeout", root.Flags().Lookup("lock-timeout"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

// Load reads the merged settings.
func Load() Settings {
	return Settings{
		Jobs:        viper.GetInt("jobs"),
		Verbose:     viper.GetBool("verbose"),
		Ninja:       viper.GetString("ninja"),
		Status:      viper.GetString("status"),
		LockTimeout: viper.GetDuration("lock_timeout"),
		History:     viper.GetBool("history"),
	}
}
