package services

import (
	"context"
	"fmt"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// shieldService implements the ShieldService interface
type shieldService struct {
	guildSettingsRepo interfaces.GuildSettingsRepository
	verificationRepo  interfaces.MemberVerificationRepository
	eventPublisher    interfaces.EventPublisher
	now               func() time.Time
}

// NewShieldService creates a new captcha protection service
func NewShieldService(
	guildSettingsRepo interfaces.GuildSettingsRepository,
	verificationRepo interfaces.MemberVerificationRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.ShieldService {
	return &shieldService{
		guildSettingsRepo: guildSettingsRepo,
		verificationRepo:  verificationRepo,
		eventPublisher:    eventPublisher,
		now:               time.Now,
	}
}

// Protect enables protection and auto-verifies eligible existing members
func (s *shieldService) Protect(ctx context.Context, guildID int64, opts interfaces.ProtectOptions, members []entities.GuildMemberJoin) (*interfaces.ProtectResult, error) {
	if opts.CaptchaCount < 1 {
		return nil, ErrInvalidCaptchaCount
	}
	if opts.AutoVerifyDays < -1 {
		return nil, ErrInvalidAutoVerifyDays
	}

	now := opts.Now
	if now.IsZero() {
		now = s.now()
	}

	settings, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}

	settings.Protect(opts.CaptchaCount, opts.AutoVerifyDays, opts.LogChannelID, now)

	if err := s.guildSettingsRepo.UpdateGuildSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update guild settings: %w", err)
	}

	result := &interfaces.ProtectResult{Settings: settings}

	eligible := EligibleForAutoVerify(members, *settings.ShieldSetupAt, opts.AutoVerifyDays)
	if len(eligible) == 0 {
		return result, nil
	}

	verified, err := s.verificationRepo.BulkVerify(ctx, eligible, now)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-verify members: %w", err)
	}
	result.AutoVerified = verified

	log.WithFields(log.Fields{
		"guild_id":      guildID,
		"auto_verified": verified,
		"days":          opts.AutoVerifyDays,
	}).Info("Auto-verified existing members")

	s.publish(events.VerificationChangedEvent{
		GuildID:  guildID,
		Verified: true,
		Source:   events.VerificationSourceAuto,
		Count:    verified,
	})

	return result, nil
}

// EligibleForAutoVerify returns the members that qualify for auto-verification.
// days == -1 disables it, 0 selects everyone who joined at or before setup, and N
// selects members who joined at least N days before setup. Bots and members with
// an unknown join time never qualify.
func EligibleForAutoVerify(members []entities.GuildMemberJoin, setupAt time.Time, days int) []int64 {
	if days < 0 {
		return nil
	}

	minAge := time.Duration(days) * 24 * time.Hour
	var eligible []int64
	for _, member := range members {
		if member.IsBot || member.JoinedAt.IsZero() {
			continue
		}
		if days == 0 {
			if !member.JoinedAt.After(setupAt) {
				eligible = append(eligible, member.UserID)
			}
			continue
		}
		if setupAt.Sub(member.JoinedAt) >= minAge {
			eligible = append(eligible, member.UserID)
		}
	}
	return eligible
}

// Unprotect disables protection for the guild
func (s *shieldService) Unprotect(ctx context.Context, guildID int64) error {
	settings, err := s.guildSettingsRepo.GetGuildSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || !settings.ShieldEnabled {
		return ErrNotProtected
	}

	settings.Unprotect()

	if err := s.guildSettingsRepo.UpdateGuildSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	return nil
}

// RequiresChallenge reports whether the member must pass a captcha before posting
func (s *shieldService) RequiresChallenge(ctx context.Context, guildID, userID int64) (*entities.GuildSettings, bool, error) {
	settings, err := s.guildSettingsRepo.GetGuildSettings(ctx, guildID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || !settings.ShieldEnabled {
		return settings, false, nil
	}

	record, err := s.verificationRepo.Get(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get member verification: %w", err)
	}
	if record != nil && record.Verified {
		return settings, false, nil
	}

	return settings, true, nil
}

// RecordCaptchaOutcome applies a challenge result to the member's progress
func (s *shieldService) RecordCaptchaOutcome(ctx context.Context, guildID, userID, channelID int64, outcome entities.CaptchaOutcome) (*entities.CaptchaProgress, error) {
	settings, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}

	record, err := s.verificationRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member verification: %w", err)
	}
	if record == nil {
		record = &entities.MemberVerification{GuildID: guildID, UserID: userID}
	}

	progress := &entities.CaptchaProgress{
		Progress: record.Progress,
		Required: settings.CaptchaCount,
		Verified: record.Verified,
	}

	event := events.CaptchaOutcomeEvent{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		ElapsedMs: outcome.Elapsed.Milliseconds(),
		Required:  settings.CaptchaCount,
	}

	if !outcome.Passed {
		event.Outcome = events.CaptchaOutcomeFailed
		event.Reason = outcome.ReasonCode()
		event.Progress = record.Progress
		s.publish(event)
		return progress, nil
	}

	now := s.now()
	record.Progress++
	if record.Progress >= settings.CaptchaCount {
		record.MarkVerified(now)
	}
	record.UpdatedAt = now.UTC()

	if err := s.verificationRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save member verification: %w", err)
	}

	progress.Verified = record.Verified
	if record.Verified {
		progress.Progress = settings.CaptchaCount
		event.Outcome = events.CaptchaOutcomeVerified
		event.Progress = settings.CaptchaCount
		s.publish(event)
		s.publish(events.VerificationChangedEvent{
			GuildID:  guildID,
			UserID:   userID,
			Verified: true,
			Source:   events.VerificationSourceCaptcha,
		})
	} else {
		progress.Progress = record.Progress
		event.Outcome = events.CaptchaOutcomePassed
		event.Progress = record.Progress
		s.publish(event)
	}

	return progress, nil
}

// VerifyMember manually marks a member verified
func (s *shieldService) VerifyMember(ctx context.Context, guildID, userID int64) error {
	if _, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID); err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	now := s.now()
	record := &entities.MemberVerification{GuildID: guildID, UserID: userID, UpdatedAt: now.UTC()}
	record.MarkVerified(now)

	if err := s.verificationRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to save member verification: %w", err)
	}

	s.publish(events.VerificationChangedEvent{
		GuildID:  guildID,
		UserID:   userID,
		Verified: true,
		Source:   events.VerificationSourceManual,
	})
	return nil
}

// UnverifyMember resets a member's verification and progress
func (s *shieldService) UnverifyMember(ctx context.Context, guildID, userID int64) (bool, error) {
	record, err := s.verificationRepo.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get member verification: %w", err)
	}
	if record == nil {
		return false, nil
	}

	record.Verified = false
	record.Progress = 0
	record.VerifiedAt = nil
	record.UpdatedAt = s.now().UTC()

	if err := s.verificationRepo.Upsert(ctx, record); err != nil {
		return false, fmt.Errorf("failed to save member verification: %w", err)
	}

	s.publish(events.VerificationChangedEvent{
		GuildID:  guildID,
		UserID:   userID,
		Verified: false,
		Source:   events.VerificationSourceManual,
	})
	return true, nil
}

func (s *shieldService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish event")
	}
}
