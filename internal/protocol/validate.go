package protocol

import (
	"fmt"
	"regexp"
)

// MaxTriggerChannels is the service limit on channels per trigger call.
const MaxTriggerChannels = 10

var (
	validChannelName = regexp.MustCompile(`^[A-Za-z0-9_\-=@,.;]+$`)
	validSocketID    = regexp.MustCompile(`^\d+\.\d+$`)
)

func ValidateChannelName(name string) error {
	if !validChannelName.MatchString(name) {
		return fmt.Errorf("%w: illegal channel name %q", ErrValidation, name)
	}
	return nil
}

func ValidateSocketID(socketID string) error {
	if !validSocketID.MatchString(socketID) {
		return fmt.Errorf("%w: invalid socket ID %q", ErrValidation, socketID)
	}
	return nil
}

// ValidateChannels enforces the per-call channel cap before any name checks.
func ValidateChannels(channels []string) error {
	if len(channels) > MaxTriggerChannels {
		return fmt.Errorf("%w: too many channels (%d), max %d", ErrCapacity, len(channels), MaxTriggerChannels)
	}
	for _, name := range channels {
		if err := ValidateChannelName(name); err != nil {
			return err
		}
	}
	return nil
}
