package main

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	var (
		write    string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `config prints the configuration after defaults, the config file and
VFOG_* environment variables have been applied.`,
		Example: `  vfogsim config
  vfogsim config --write config.json
  VFOG_SIM_TRIALS=50 vfogsim config --validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if validate {
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if write != "" {
				if err := cfg.SaveToFile(write); err != nil {
					return err
				}
				logger.Info().Str("path", write).Msg("configuration written")
				return nil
			}

			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&write, "write", "", "write the configuration to this path instead of printing it")
	cmd.Flags().BoolVar(&validate, "validate", false, "fail if the configuration is invalid")
	return cmd
}
