package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openchad-ai/openchad/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		fmt.Printf("backendUrl: %s\n", cfg.BackendURL)
		fmt.Printf("theme:      %s\n", cfg.Theme)
		fmt.Printf("logLevel:   %s\n", cfg.LogLevel)
		fmt.Printf("dataDir:    %s\n", cfg.DataDir)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the global config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GlobalConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}

		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
