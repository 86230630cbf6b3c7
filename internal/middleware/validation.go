package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxQuestionLen = 280
	MaxDeviceIDLen = 64
	MaxOptionLen   = 140
	MinPollOptions = 2
	MaxPollOptions = 6
)

var (
	// deviceIDRe matches locally generated device ids: lowercase
	// alphanumeric, as minted by the deviceid package.
	deviceIDRe = regexp.MustCompile(`^[a-z0-9]+$`)
	// idRe matches poll/option/order identifiers: uuid-shaped or short
	// fixed ids like "yes"/"no", plus Razorpay order ids.
	idRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateQuestion trims and checks the poll question.
func ValidateQuestion(q string) (string, string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", "question is required"
	}
	if len(q) > MaxQuestionLen {
		return "", "question must be at most 280 characters"
	}
	return q, ""
}

// ValidateOptions checks the option texts for a custom poll.
func ValidateOptions(options []string) ([]string, string) {
	if len(options) < MinPollOptions || len(options) > MaxPollOptions {
		return nil, "a poll needs between 2 and 6 options"
	}
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, "option text cannot be empty"
		}
		if len(o) > MaxOptionLen {
			return nil, "option text must be at most 140 characters"
		}
		out = append(out, o)
	}
	return out, ""
}

// ValidateID checks a poll, option, or order identifier.
func ValidateID(field, id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	if len(id) > 64 {
		return "", field + " must be at most 64 characters"
	}
	if !idRe.MatchString(id) {
		return "", field + " contains invalid characters"
	}
	return id, ""
}

// ValidateDeviceID checks a device identifier.
func ValidateDeviceID(id string) (string, string) {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "", "deviceId is required"
	}
	if len(id) > MaxDeviceIDLen {
		return "", "deviceId must be at most 64 characters"
	}
	if !deviceIDRe.MatchString(id) {
		return "", "deviceId contains invalid characters"
	}
	return id, ""
}
