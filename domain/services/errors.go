package services

import "errors"

// User-facing domain errors; callers match them with errors.Is
var (
	ErrInvalidCaptchaCount      = errors.New("captcha amount must be at least 1")
	ErrInvalidAutoVerifyDays    = errors.New("auto verify days must be -1 or greater")
	ErrInvalidScamThreshold     = errors.New("scam threshold must be greater than 0")
	ErrNotProtected             = errors.New("guild is not protected")
	ErrChannelAlreadyRegistered = errors.New("channel already registered")
	ErrChannelNotRegistered     = errors.New("channel not registered")
	ErrTournamentAlreadyLinked  = errors.New("tournament already linked")
	ErrTournamentNotLinked      = errors.New("tournament not linked")
	ErrInvalidUUID              = errors.New("invalid UUID")
	ErrInvalidPollInterval      = errors.New("poll interval must be at least 2 seconds")
	ErrInvalidURL               = errors.New("invalid URL")
)
