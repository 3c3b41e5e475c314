// Package errlvl tags errors with a severity level so that callers up the
// stack can decide how loudly to complain about them.
package errlvl

import (
	"errors"
	"fmt"
)

type Lvl uint8

const (
	DEBUG Lvl = iota + 1
	INFO
	WARN
	ERROR
	FATAL
)

var (
	ErrDebug = errors.New("[DEBUG]")
	ErrInfo  = errors.New("[INFO]")
	ErrWarn  = errors.New("[WARN]")
	ErrError = errors.New("[ERROR]")
	ErrFatal = errors.New("[FATAL]")
)

// Wrap attaches the given severity to err. An error that already carries a
// level is returned unchanged, so the first (deepest) level wins.
func Wrap(err error, level Lvl) error {
	if hasLevel(err) {
		return err
	}

	switch level {
	case DEBUG:
		return fmt.Errorf("%w %w", ErrDebug, err)
	case INFO:
		return fmt.Errorf("%w %w", ErrInfo, err)
	case WARN:
		return fmt.Errorf("%w %w", ErrWarn, err)
	case FATAL:
		return fmt.Errorf("%w %w", ErrFatal, err)
	default:
		return fmt.Errorf("%w %w", ErrError, err)
	}
}

func hasLevel(err error) bool {
	return errors.Is(err, ErrDebug) || errors.Is(err, ErrInfo) || errors.Is(err, ErrWarn) ||
		errors.Is(err, ErrError) || errors.Is(err, ErrFatal)
}
