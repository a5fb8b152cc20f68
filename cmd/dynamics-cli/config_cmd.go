package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/norpie/dynamics-cli-sub003/internal/config"
)

func init() {
	configCmd.AddCommand(configExportCmd, configImportCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Backup and restore the ConfigStore",
}

var configExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write every environment, credential set, mapping, and queue item to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		doc, err := store.Export(rootCtx)
		if err != nil {
			return fmt.Errorf("export store: %w", err)
		}
		data, err := config.MarshalExport(doc)
		if err != nil {
			return fmt.Errorf("marshal export document: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o600); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}
		fmt.Printf("exported to %s\n", args[0])
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the ConfigStore's entire contents from a previously exported YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStoreOnly(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export file: %w", err)
		}
		doc, err := config.UnmarshalExport(data)
		if err != nil {
			return fmt.Errorf("parse export file: %w", err)
		}
		if err := store.Import(rootCtx, doc); err != nil {
			return fmt.Errorf("import store: %w", err)
		}
		fmt.Printf("imported from %s\n", args[0])
		return nil
	},
}
