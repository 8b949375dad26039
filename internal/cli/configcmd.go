package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faceaudit/faceaudit/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the client configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Server URL:        %s\n", cfg.ServerURL)
			fmt.Printf("Proxy mode:        %s\n", cfg.Proxy.Mode)
			fmt.Printf("Notifications:     %t\n", cfg.Notifications.Enabled)
			fmt.Println("Detection defaults:")
			fmt.Printf("  download_timeout: %d\n", cfg.Detection.DownloadTimeout)
			fmt.Printf("  mediapipe_thresh: %.2f\n", cfg.Detection.MediapipeThresh)
			fmt.Printf("  dnn_thresh:       %.2f\n", cfg.Detection.DNNThresh)
			fmt.Printf("  num_threads:      %d\n", cfg.Detection.NumThreads)
			fmt.Printf("  batch_size:       %d\n", cfg.Detection.BatchSize)
			fmt.Printf("  save_images:      %t\n", cfg.Detection.SaveImages)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.New()
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				fmt.Println(cfgFile)
				return nil
			}
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}
