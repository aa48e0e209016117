package main

import (
	"github.com/nexus-console/nexus-console/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:               "nexus-console",
	Short:             "Nexus Console is the role-gated administration console for the Nexus platform.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepareCommand,
}

func Execute() error {
	return rootCmd.Execute()
}

// prepareCommand records how fatal errors of cmd are reported and installs
// the structured logger for server-style commands.
func prepareCommand(cmd *cobra.Command, _ []string) error {
	structured := commandUsesStructuredLogging(cmd)
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       cmd.CommandPath(),
		UsesStructuredLog: structured,
	})
	if !structured {
		return nil
	}
	if _, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: cmd.CommandPath()}); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, routesCmd, usersCmd)
}
