package main

import (
	"fmt"
	"os"

	"discord-automod/bot"
	"discord-automod/command"
	"discord-automod/config"
	"discord-automod/handlers"
	"discord-automod/utils"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "automod",
		Usage: "Discord automated moderation bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.yaml",
				EnvVars: []string{"AUTOMOD_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "connect to Discord and moderate messages",
				Action: runAction,
			},
			{
				Name:   "check",
				Usage:  "validate the configuration and moderation files, then exit",
				Action: checkAction,
			},
		},
		DefaultCommand: "run",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and returns the configured logger.
func setup(c *cli.Context) (*zap.Logger, error) {
	bootstrap, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	if err := config.LoadConfig(c.String("config"), bootstrap); err != nil {
		return nil, err
	}
	return utils.NewLogger(viper.GetString("log.level"), viper.GetBool("log.development"))
}

func runAction(c *cli.Context) error {
	logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return bot.Run(logger, handlers.Register, command.GetCommandDefinitions())
}

func checkAction(c *cli.Context) error {
	logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := config.BuildSnapshot(logger)
	if snap == nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "rules file:      %s\n", snap.Settings.RulesPath)
	fmt.Fprintf(out, "templates file:  %s\n", snap.Settings.TemplatesPath)
	fmt.Fprintf(out, "banned terms:    %d in %d buckets\n", snap.Rules.TermCount(), len(snap.Rules.Buckets))
	fmt.Fprintf(out, "templates:       %d\n", len(snap.Templates))
	fmt.Fprintf(out, "classifier:      %s\n", snap.Classifier.Name())
	if err != nil {
		return fmt.Errorf("moderation files have errors: %w", err)
	}
	fmt.Fprintln(out, "configuration OK")
	return nil
}
