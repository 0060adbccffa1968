package models

import "time"

// Character represents one game character known to the system.
// A character may be a sub-account linked to a primary login via
// MasterCharacterID. Rows are never hard-deleted; an irrecoverable
// credential failure only clears SSOIsValid until the user re-authenticates.
type Character struct {
	CharacterID        int64     `json:"characterId" db:"character_id"`
	CharacterName      string    `json:"characterName" db:"character_name"`
	OwnerHash          string    `json:"ownerHash,omitempty" db:"owner_hash"`
	MasterCharacterID  *int64    `json:"masterCharacterId,omitempty" db:"master_character_id"`
	AccessToken        string    `json:"-" db:"access_token"`
	AccessTokenExpires time.Time `json:"accessTokenExpires" db:"access_token_expires"`
	RefreshToken       string    `json:"-" db:"refresh_token"`
	SSOIsValid         bool      `json:"ssoIsValid" db:"sso_is_valid"`
	DiscordUserID      string    `json:"discordUserId,omitempty" db:"discord_user_id"`
}

// TokenExpired reports whether the stored access token needs a refresh.
// A small skew avoids using a token that expires mid-request.
func (c *Character) TokenExpired(now time.Time) bool {
	return !now.Add(30 * time.Second).Before(c.AccessTokenExpires)
}

// FeatureSet holds per-character opt-in feature flags as a JSON blob,
// keyed by feature name.
type FeatureSet struct {
	CharacterID int64           `json:"characterId" db:"character_id"`
	Features    map[string]bool `json:"features" db:"features"`
}

// Enabled reports whether a named feature is enabled for the character.
func (f *FeatureSet) Enabled(name string) bool {
	if f == nil || f.Features == nil {
		return false
	}
	return f.Features[name]
}
