package models

import "time"

// CommandsConfig represents the "commands" section of config.yaml.
type CommandsConfig struct {
	Auth AuthConfig `json:"auth" mapstructure:"auth"`
}

// AuthConfig lists who may run the staff slash commands.
type AuthConfig struct {
	Developers  []string `json:"developers" mapstructure:"developers"`
	AdminsRoles []string `json:"admins_roles" mapstructure:"admins_roles"`
	Guest       []string `json:"guest" mapstructure:"guest"`
}

// SchedulerConfig represents the "scheduler" section of config.yaml.
type SchedulerConfig struct {
	Compaction string `json:"compaction" mapstructure:"compaction"` // cron spec
}

// StoreStatus is written to storage.status_file after each compaction.
type StoreStatus struct {
	Driver         string    `json:"driver"`
	Records        int       `json:"records"`
	PrunedStrikes  int       `json:"pruned_strikes"`
	LastCompaction time.Time `json:"last_compaction"`
	LastUpdated    time.Time `json:"last_updated"`
}
