package models

// Settings is the single mutable runtime-settings record, editable from the
// administrator panel.
type Settings struct {
	EnableManualLogin bool        `json:"enableManualLogin"`
	DiscordPolicy     GuildPolicy `json:"discordConfig"`
}

// GuildPolicy gates OAuth registration through a guild-based provider on
// community membership. A zero RequiredGuildID disables the check.
type GuildPolicy struct {
	RequiredGuildID string `json:"requiredGuildId"`
	MinJoinDays     int    `json:"minJoinDays"`
}

// Enabled reports whether the membership check applies.
func (p GuildPolicy) Enabled() bool {
	return p.RequiredGuildID != ""
}

// DefaultSettings returns the values used before an administrator has saved
// anything.
func DefaultSettings() Settings {
	return Settings{EnableManualLogin: true}
}
