package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yaml"

// Execute runs the trivia-tracker command line.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       string
	)
	root := &cobra.Command{
		Use:          "trivia-tracker",
		Short:        "Shared live state for a team trivia contest",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", envOr("CONFIG_PATH", defaultConfigPath), "path to YAML config")
	// An empty port defers to server.port in the config file.
	flags.StringVar(&port, "port", os.Getenv("PORT"), "port to listen on")

	root.AddCommand(NewStartCmd(&configPath, &port), NewMigrateCmd(&configPath))
	return root
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
