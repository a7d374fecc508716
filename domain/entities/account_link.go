package entities

import "time"

// AccountLink connects a Challenger Mode account to a Discord user
type AccountLink struct {
	CMUserID      string    `db:"cm_user_id"`
	DiscordUserID int64     `db:"discord_user_id"`
	LinkedAt      time.Time `db:"linked_at"`
}
