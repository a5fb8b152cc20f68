package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func init() {
	envCmd.AddCommand(envListCmd, envAddCmd, envUseCmd, envRemoveCmd)
	rootCmd.AddCommand(envCmd)

	envAddCmd.Flags().String("credential", "", "Name of an existing credential set to attach")
	envAddCmd.Flags().String("username", "", "Create a username/password credential set with this username")
	envAddCmd.Flags().String("password", "", "Password for --username")
	envAddCmd.Flags().String("client-id", "", "Entra application (client) id")
	envAddCmd.Flags().String("client-secret", "", "Entra application client secret")
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage configured Dynamics 365 environments",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		envs, err := store.ListEnvironments(rootCtx)
		if err != nil {
			return fmt.Errorf("list environments: %w", err)
		}
		current, _ := store.GetCurrent(rootCtx)
		for _, env := range envs {
			marker := "  "
			if env.Name == current.Name {
				marker = "* "
			}
			fmt.Printf("%s%s\t%s\n", marker, env.Name, env.Host)
		}
		return nil
	},
}

var envUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch the active environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := store.SetCurrent(rootCtx, args[0]); err != nil {
			return fmt.Errorf("switch environment: %w", err)
		}
		fmt.Printf("switched to %s\n", args[0])
		return nil
	},
}

var envRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a configured environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := store.DeleteEnvironment(rootCtx, args[0]); err != nil {
			return fmt.Errorf("remove environment: %w", err)
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

var envAddCmd = &cobra.Command{
	Use:   "add <name> <host>",
	Short: "Add an environment, optionally creating a credential set for it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		name, host := args[0], args[1]
		credential, _ := cmd.Flags().GetString("credential")
		username, _ := cmd.Flags().GetString("username")

		if credential == "" && username != "" {
			password, _ := cmd.Flags().GetString("password")
			clientID, _ := cmd.Flags().GetString("client-id")
			clientSecret, _ := cmd.Flags().GetString("client-secret")
			credential = name
			cs := types.CredentialSet{
				Name: credential, Kind: types.CredentialUsernamePassword,
				Username: username, Password: password, ClientID: clientID, ClientSecret: clientSecret,
			}
			if err := store.AddCredentialSet(rootCtx, cs); err != nil {
				return fmt.Errorf("create credential set: %w", err)
			}
		}
		if credential == "" {
			return fmt.Errorf("either --credential or --username must be given")
		}

		if err := store.AddEnvironment(rootCtx, types.Environment{Name: name, Host: host, CredentialRef: credential}); err != nil {
			return fmt.Errorf("add environment: %w", err)
		}
		fmt.Printf("added %s (%s)\n", name, host)
		return nil
	},
}

// openStoreOnly opens the ConfigStore without building the full
// client/queue/metrics graph — the non-interactive env and config
// subcommands only ever touch the store directly.
func openStoreOnly(cmd *cobra.Command) (*config.Store, func(), error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := config.Open(s.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open config store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
