package domain

import (
	"fmt"
	"regexp"
)

var agentNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]{1,64}$`)

// ValidateAgentName checks an agent identifier. Agents are opaque labels but
// they end up in URLs, logs, and database keys.
func ValidateAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("agent name is required")
	}
	if !agentNameRegex.MatchString(name) {
		return fmt.Errorf("invalid agent name: %s", name)
	}
	return nil
}

// ValidatePositiveAmount checks that an amount is positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}
