package cmd

import (
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	debug      bool
	configPath string
	tokenFile  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gamestream",
	Short: "Game server event stream client",
	Long: `gamestream keeps a server-sent event stream open to a game server and
prints the connected, gameState, gameWon and error events it receives.

The connection is retried with exponential backoff until interrupted.
Settings are read from an optional HCL file (--config) and GAMESTREAM_*
environment variables; the bearer token is kept in a credentials file
managed with "gamestream token".`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "HCL config file")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "credentials file (default is the user config dir)")
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetDebug returns the debug flag value
func GetDebug() bool {
	return debug
}
