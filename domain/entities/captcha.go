package entities

import (
	"fmt"
	"time"
)

// CaptchaChoiceCount is the number of digit reactions offered per challenge
const CaptchaChoiceCount = 4

// CaptchaChallenge is a single "react with the sum" challenge
type CaptchaChallenge struct {
	A       int
	B       int
	Choices []int // Digits offered as reactions, shuffled, containing Answer()
}

// Answer returns the expected digit
func (c CaptchaChallenge) Answer() int {
	return c.A + c.B
}

// CaptchaFailReason describes why a challenge was failed
type CaptchaFailReason string

const (
	CaptchaFailTimeout         CaptchaFailReason = "timeout"
	CaptchaFailInvalidReaction CaptchaFailReason = "invalid_reaction"
	CaptchaFailIncorrectAnswer CaptchaFailReason = "incorrect_answer"
)

// CaptchaOutcome is the result of a challenge attempt
type CaptchaOutcome struct {
	Passed   bool
	Reason   CaptchaFailReason // Empty when passed
	Chosen   int               // Digit picked for incorrect answers
	Expected int
	Elapsed  time.Duration
}

// ReasonCode returns the compact reason identifier, e.g. "incorrect_answer:7"
func (o CaptchaOutcome) ReasonCode() string {
	if o.Reason == CaptchaFailIncorrectAnswer {
		return fmt.Sprintf("%s:%d", o.Reason, o.Chosen)
	}
	return string(o.Reason)
}

// ReasonText returns the human readable failure reason
func (o CaptchaOutcome) ReasonText() string {
	switch o.Reason {
	case CaptchaFailIncorrectAnswer:
		return fmt.Sprintf("Incorrect answer selected (%d). Expected: %d.", o.Chosen, o.Expected)
	case CaptchaFailTimeout:
		return "Timeout (no valid reaction within time limit)."
	case CaptchaFailInvalidReaction:
		return "Invalid reaction (not a recognized digit emoji)."
	case "":
		return ""
	default:
		return fmt.Sprintf("Fail reason: %s", o.Reason)
	}
}

// SuspiciouslyFast reports whether a pass happened faster than a human plausibly reacts
func (o CaptchaOutcome) SuspiciouslyFast() bool {
	return o.Passed && o.Elapsed < 2*time.Second
}

// CaptchaProgress is the member state after a passed challenge
type CaptchaProgress struct {
	Progress int
	Required int
	Verified bool
}
