package entities

import "time"

// MemberVerification tracks a member's captcha progress within a guild
type MemberVerification struct {
	GuildID    int64      `db:"guild_id"`
	UserID     int64      `db:"user_id"`
	Verified   bool       `db:"verified"`
	Progress   int        `db:"progress"` // Captchas passed towards the guild's requirement
	VerifiedAt *time.Time `db:"verified_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// MarkVerified flags the member as verified and resets progress
func (mv *MemberVerification) MarkVerified(at time.Time) {
	mv.Verified = true
	mv.Progress = 0
	verifiedAt := at.UTC()
	mv.VerifiedAt = &verifiedAt
}

// GuildMemberJoin is the minimal member view needed to evaluate auto-verification
type GuildMemberJoin struct {
	UserID   int64
	JoinedAt time.Time
	IsBot    bool
}
