// Package common holds error behaviors shared by the CLI and the services
// it drives.
package common

import (
	"errors"
	"fmt"
)

// SilenceUsageError is implemented by errors that should not print CLI
// usage. The command was well formed; something else failed.
type SilenceUsageError interface {
	error
	ShouldSilenceUsage() bool
}

// UserFacingError carries a short message suitable for a notification.
type UserFacingError interface {
	error
	UserMessage() string
}

// RecoverableError suggests what the user can do next.
type RecoverableError interface {
	error
	RecoveryHint() string
}

// ShouldSilenceUsage reports whether any error in err's chain asks to
// silence usage output.
func ShouldSilenceUsage(err error) bool {
	var sue SilenceUsageError
	return errors.As(err, &sue) && sue.ShouldSilenceUsage()
}

// GetUserMessage returns the first user message in err's chain, or
// err.Error() when there is none.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ufe UserFacingError
	if errors.As(err, &ufe) {
		return ufe.UserMessage()
	}
	return err.Error()
}

// GetRecoveryHint returns the first recovery hint in err's chain.
func GetRecoveryHint(err error) string {
	var re RecoverableError
	if errors.As(err, &re) {
		return re.RecoveryHint()
	}
	return ""
}

// ConfigError reports an unusable configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ShouldSilenceUsage implements SilenceUsageError.
func (e *ConfigError) ShouldSilenceUsage() bool { return true }

// RecoveryHint implements RecoverableError.
func (e *ConfigError) RecoveryHint() string {
	return "run 'stakectl config init' to write a default configuration, or fix the values listed above"
}

// ConnectionError reports an unreachable chain endpoint.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// UserMessage implements UserFacingError.
func (e *ConnectionError) UserMessage() string {
	return fmt.Sprintf("Could not reach %s", e.Endpoint)
}

// ShouldSilenceUsage implements SilenceUsageError.
func (e *ConnectionError) ShouldSilenceUsage() bool { return true }

// RecoveryHint implements RecoverableError.
func (e *ConnectionError) RecoveryHint() string {
	return "check that the node is running and that [network] endpoints are correct"
}
