// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var (
	configPath string // directory holding main.toml

	rootCmd = &cobra.Command{
		Use:   "gouseradmin",
		Short: "GoUserAdmin is a user, role and permission management API",
		Long: `GoUserAdmin is a JSON API for user accounts with role based access control.
It issues signed bearer tokens, revokes them on logout and guards every
administrative endpoint by role, permission or permission category.`,
		Args:         cobra.OnlyValidArgs,
		SilenceUsage: true,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "directory containing main.toml (default ./etc/)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
