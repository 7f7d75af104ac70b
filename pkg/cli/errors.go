package cli

import (
	"errors"
	"fmt"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitConfig  = 2
	ExitFlagged = 3
)

// ConfigError reports an unusable configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError reports a failed command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ThresholdError reports that an evaluation reached the --fail-on level.
// The results have already been written when it is returned.
type ThresholdError struct {
	Threshold safety.Level
	Highest   safety.Level
	Count     int
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%d evaluated item(s) at or above %s (highest %s)", e.Count, e.Threshold, e.Highest)
}

// ParseThreshold parses a --fail-on level. An empty value disables the
// check and yields LevelSafe. "safe" itself is rejected since every verdict
// is at least safe.
func ParseThreshold(s string) (safety.Level, error) {
	if s == "" {
		return safety.LevelSafe, nil
	}
	level, err := safety.ParseLevel(s)
	if err != nil {
		return safety.LevelSafe, err
	}
	if level == safety.LevelSafe {
		return safety.LevelSafe, fmt.Errorf("fail-on level must be above safe, got %q", s)
	}
	return level, nil
}

// CheckThreshold returns a *ThresholdError when any level is at least
// threshold. A safe threshold disables the check.
func CheckThreshold(threshold safety.Level, levels ...safety.Level) error {
	if threshold == safety.LevelSafe {
		return nil
	}
	var count int
	highest := safety.LevelSafe
	for _, l := range levels {
		if l.AtLeast(threshold) {
			count++
		}
		highest = safety.Combine(highest, l)
	}
	if count == 0 {
		return nil
	}
	return &ThresholdError{Threshold: threshold, Highest: highest, Count: count}
}

// NewConfigError creates a ConfigError.
func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{Path: path, Err: err}
}

// NewCommandError creates a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
// Configuration problems, including validation failures, exit with
// ExitConfig. A reached --fail-on threshold exits with ExitFlagged.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	var validation config.ValidationError
	var flagged *ThresholdError
	switch {
	case errors.As(err, &flagged):
		return ExitFlagged
	case errors.As(err, &cfgErr), errors.As(err, &validation):
		return ExitConfig
	default:
		return ExitError
	}
}
