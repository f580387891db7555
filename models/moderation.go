package models

// ModerationConfig represents the "moderation" section of config.yaml.
type ModerationConfig struct {
	StaffRoleID    string   `json:"staff_role_id" mapstructure:"staff_role_id"`
	NoAutomod      []string `json:"no_automod" mapstructure:"no_automod"`           // role IDs exempt from automod
	ExemptChannels []string `json:"exempt_channels" mapstructure:"exempt_channels"` // channel IDs exempt from automod
	IgnoreBots     bool     `json:"ignore_bots" mapstructure:"ignore_bots"`
	InvitePattern  string   `json:"invite_pattern" mapstructure:"invite_pattern"`
	StafferName    string   `json:"staffer_name" mapstructure:"staffer_name"`
	RulesPath      string   `json:"rules_path" mapstructure:"rules_path"`
	TemplatesPath  string   `json:"templates_path" mapstructure:"templates_path"`
	ScanEdits      bool     `json:"scan_edits" mapstructure:"scan_edits"`
	AI             AIConfig `json:"ai" mapstructure:"ai"`
}

// AIConfig represents the "moderation.ai" section of config.yaml.
// RequestedAttributes, Thresholds and Language only apply to the
// per-category score provider.
type AIConfig struct {
	Enabled             bool               `json:"enabled" mapstructure:"enabled"`
	Provider            string             `json:"provider" mapstructure:"provider"`
	Model               string             `json:"model" mapstructure:"model"`
	Endpoint            string             `json:"endpoint" mapstructure:"endpoint"`
	APIKey              string             `json:"api_key" mapstructure:"api_key"`
	TimeoutMS           int                `json:"timeout_ms" mapstructure:"timeout_ms"`
	MaxMessageChars     int                `json:"max_message_chars" mapstructure:"max_message_chars"`
	TimeoutMinutes      int                `json:"timeout_minutes" mapstructure:"timeout_minutes"`
	EscalateAfter       int                `json:"escalate_after" mapstructure:"escalate_after"`
	StrikeWindowSec     int                `json:"strike_window_sec" mapstructure:"strike_window_sec"`
	RequestedAttributes []string           `json:"requested_attributes" mapstructure:"requested_attributes"`
	Thresholds          map[string]float64 `json:"thresholds" mapstructure:"thresholds"`
	Language            string             `json:"language" mapstructure:"language"`
	MaxConcurrent       int64              `json:"max_concurrent" mapstructure:"max_concurrent"`
}

// StorageConfig represents the "storage" section of config.yaml.
type StorageConfig struct {
	Driver     string `json:"driver" mapstructure:"driver"` // sqlite, redis or memory
	Path       string `json:"path" mapstructure:"path"`
	RedisURL   string `json:"redis_url" mapstructure:"redis_url"`
	StatusFile string `json:"status_file" mapstructure:"status_file"`
}

// DMTemplate is a direct notice template keyed by sanction kind.
type DMTemplate struct {
	Title       string `json:"title" mapstructure:"title"`
	Description string `json:"description" mapstructure:"description"`
	Color       int    `json:"color" mapstructure:"color"`
	Thumbnail   string `json:"thumbnail" mapstructure:"thumbnail"`
	Footer      string `json:"footer" mapstructure:"footer"`
}

// DefaultModerationConfig returns the moderation settings used when
// config.yaml leaves a key unset.
func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		IgnoreBots:    true,
		InvitePattern: "discord.gg",
		StafferName:   "Sistema",
		RulesPath:     "moderation.json",
		AI: AIConfig{
			Enabled:         true,
			Provider:        "openai",
			Model:           "omni-moderation-latest",
			TimeoutMS:       5000,
			MaxMessageChars: 1200,
			TimeoutMinutes:  30,
			EscalateAfter:   2,
			StrikeWindowSec: 1800,
			Language:        "it",
			MaxConcurrent:   4,
		},
	}
}
