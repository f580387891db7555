package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"discord-automod/models"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// sideFiles are merged on top of config.yaml when present in ./config.
var sideFiles = []string{"automod"}

// LoadConfig loads configuration from, in order:
//  1. .env (environment variables only)
//  2. configPath, or config.yaml in the working directory
//  3. config/automod.json, merged into the main configuration
//
// Environment variables override file values, with "." replaced by "_".
func LoadConfig(configPath string, logger *zap.Logger) error {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, skipping")
	}

	setDefaults()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Warn("No config.yaml found, using environment variables and defaults")
	}
	mainFile := viper.ConfigFileUsed()

	if err := mergeSideFiles(logger); err != nil {
		return err
	}

	// MergeInConfig moved the active config file; point it back so
	// WatchConfig follows config.yaml.
	if mainFile != "" {
		viper.SetConfigFile(mainFile)
	}
	return nil
}

func mergeSideFiles(logger *zap.Logger) error {
	for _, name := range sideFiles {
		viper.SetConfigName(name)
		viper.SetConfigType("json")
		viper.AddConfigPath("./config")

		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				logger.Debug("Side config file not found, skipping", zap.String("name", name))
				continue
			}
			return fmt.Errorf("failed to merge config/%s.json: %w", name, err)
		}
	}
	return nil
}

func setDefaults() {
	d := models.DefaultModerationConfig()

	viper.SetDefault("moderation.ignore_bots", d.IgnoreBots)
	viper.SetDefault("moderation.invite_pattern", d.InvitePattern)
	viper.SetDefault("moderation.staffer_name", d.StafferName)
	viper.SetDefault("moderation.rules_path", d.RulesPath)
	viper.SetDefault("moderation.scan_edits", false)

	viper.SetDefault("moderation.ai.enabled", d.AI.Enabled)
	viper.SetDefault("moderation.ai.provider", d.AI.Provider)
	viper.SetDefault("moderation.ai.model", d.AI.Model)
	viper.SetDefault("moderation.ai.timeout_ms", d.AI.TimeoutMS)
	viper.SetDefault("moderation.ai.max_message_chars", d.AI.MaxMessageChars)
	viper.SetDefault("moderation.ai.timeout_minutes", d.AI.TimeoutMinutes)
	viper.SetDefault("moderation.ai.escalate_after", d.AI.EscalateAfter)
	viper.SetDefault("moderation.ai.strike_window_sec", d.AI.StrikeWindowSec)
	viper.SetDefault("moderation.ai.language", d.AI.Language)
	viper.SetDefault("moderation.ai.max_concurrent", d.AI.MaxConcurrent)

	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.path", "data/automod.db")
	viper.SetDefault("storage.status_file", "data/status.json")
	viper.SetDefault("scheduler.compaction", "@hourly")
	viper.SetDefault("metrics.listen", ":9090")
	viper.SetDefault("grpc.health_listen", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
}

// decodeSection decodes the top-level section key into out. The section
// is taken from AllSettings so defaults, file values and environment
// overrides are merged per leaf key.
func decodeSection(key string, out any) error {
	section, ok := viper.AllSettings()[key]
	if !ok {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimmedListHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(section); err != nil {
		return fmt.Errorf("failed to decode %s config: %w", key, err)
	}
	return nil
}

// trimmedListHook accepts comma separated strings for list options, e.g.
// MODERATION_NO_AUTOMOD="123,456".
func trimmedListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		var out []string
		for _, part := range strings.Split(data.(string), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
}

// Moderation returns the "moderation" section.
func Moderation() (models.ModerationConfig, error) {
	var cfg models.ModerationConfig
	if err := decodeSection("moderation", &cfg); err != nil {
		return models.ModerationConfig{}, err
	}
	if cfg.TemplatesPath == "" {
		cfg.TemplatesPath = cfg.RulesPath
	}
	return cfg, nil
}

// Storage returns the "storage" section.
func Storage() (models.StorageConfig, error) {
	var cfg models.StorageConfig
	if err := decodeSection("storage", &cfg); err != nil {
		return models.StorageConfig{}, err
	}
	return cfg, nil
}

// Commands returns the "commands" section.
func Commands() (models.CommandsConfig, error) {
	var cfg models.CommandsConfig
	if err := decodeSection("commands", &cfg); err != nil {
		return models.CommandsConfig{}, err
	}
	return cfg, nil
}

// Scheduler returns the "scheduler" section.
func Scheduler() models.SchedulerConfig {
	return models.SchedulerConfig{Compaction: viper.GetString("scheduler.compaction")}
}

// Token returns the Discord bot token.
func Token() string {
	return viper.GetString("BOT_TOKEN")
}

// AdminChannelID returns the channel audit embeds are posted to.
func AdminChannelID() string {
	return viper.GetString("bot.adminChannelId")
}

// WatchedFiles returns the absolute paths of the moderation side files.
func WatchedFiles(cfg models.ModerationConfig) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range []string{cfg.RulesPath, cfg.TemplatesPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}
