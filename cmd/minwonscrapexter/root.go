// cmd/minwonscrapexter/root.go
package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/utils"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "minwonscrapexter",
		Short:         "정부24 민원 서비스 수집기",
		Long:          "minwonscrapexter crawls the gov.kr civic service catalogue and exports every service with its detail fields.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newTestCmd(opts),
		newDetailCmd(opts),
		newDepartmentsCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads and validates the configuration and builds the logger
func (o *rootOptions) load() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (o *rootOptions) logger(cfg *config.Config) (*logrus.Logger, error) {
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return logger, nil
}
