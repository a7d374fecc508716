package common

import "time"

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorDanger  = 0xED4245 // Red
	ColorWarning = 0xFEE75C // Yellow
	ColorInfo    = 0x3498DB // Blue
	ColorOrange  = 0xE67E22
)

// Discord limits
const (
	MaxEmbedFieldValue  = 1024
	MaxEmbedDescription = 4096
)

// Lifetimes of transient bot messages
const (
	CaptchaPassedDeleteAfter = 5 * time.Second
	VerifiedDeleteAfter      = 10 * time.Second
)
