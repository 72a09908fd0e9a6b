package main

import (
	"fmt"
	"os"
	"strings"

	"notewiz-notes/notewiz/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	serverKey   = "server"
	tokenKey    = "token"
	logLevelKey = "log-level"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notewiz-cli",
		Short:         "Follow NoteWiz notes, notifications and reminders from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(logger.Options{Level: viper.GetString(logLevelKey), Format: "console", Writer: cmd.ErrOrStderr()})
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(serverKey, "ws://localhost:8080", "server base URL (ws:// or wss://)")
	flags.String(tokenKey, "", "bearer token from /api/v1/auth/login")
	flags.String(logLevelKey, "warn", "log level (debug|info|warn|error)")
	mustBindFlag(serverKey, flags.Lookup(serverKey))
	mustBindFlag(tokenKey, flags.Lookup(tokenKey))
	mustBindFlag(logLevelKey, flags.Lookup(logLevelKey))

	viper.SetEnvPrefix("NOTEWIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cmd.AddCommand(
		newWatchCommand(),
		newNotificationsCommand(),
		newRemindCommand(),
	)
	return cmd
}

func mustBindFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for key %s not found", key))
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
