package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a GameError.
type Kind string

const (
	KindGameNotFound       Kind = "game_not_found"
	KindPlayerNotFound     Kind = "player_not_found"
	KindInvalidAction      Kind = "invalid_action"
	KindGameAlreadyStarted Kind = "game_already_started"
	KindGameNotStarted     Kind = "game_not_started"
	KindGameAlreadyEnded   Kind = "game_already_ended"
	KindMaxPlayersReached  Kind = "max_players_reached"
	KindMinPlayersNotMet   Kind = "min_players_not_met"
	KindTurnTimeout        Kind = "turn_timeout"
	KindInvalidState       Kind = "invalid_state"
	KindConfigError        Kind = "config_error"
	KindAIProviderError    Kind = "ai_provider_error"
	KindSerializationError Kind = "serialization_error"
	KindIoError            Kind = "io_error"
)

// GameError is the single error type returned by engine operations.
// Only the fields relevant to its Kind are set.
type GameError struct {
	Kind     Kind   `json:"kind"`
	ID       string `json:"id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Err      error  `json:"-"`
}

func (e *GameError) Error() string {
	switch e.Kind {
	case KindGameNotFound:
		return fmt.Sprintf("game not found: %s", e.ID)
	case KindPlayerNotFound:
		return fmt.Sprintf("player not found: %s", e.PlayerID)
	case KindInvalidAction:
		return fmt.Sprintf("invalid action: %s", e.Reason)
	case KindGameAlreadyStarted:
		return "game already started"
	case KindGameNotStarted:
		return "game not started"
	case KindGameAlreadyEnded:
		return "game already ended"
	case KindMaxPlayersReached:
		return fmt.Sprintf("maximum players reached: %d", e.Limit)
	case KindMinPlayersNotMet:
		return fmt.Sprintf("minimum players not met: %d", e.Limit)
	case KindTurnTimeout:
		return fmt.Sprintf("turn timeout: %s", e.PlayerID)
	case KindInvalidState:
		return fmt.Sprintf("invalid game state: %s", e.Reason)
	case KindConfigError:
		return fmt.Sprintf("configuration error: %s", e.Reason)
	case KindAIProviderError:
		return fmt.Sprintf("ai provider error: %s", e.Reason)
	case KindSerializationError:
		return fmt.Sprintf("serialization error: %v", e.Err)
	case KindIoError:
		return fmt.Sprintf("io error: %v", e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *GameError) Unwrap() error { return e.Err }

// Is matches any GameError of the same Kind, so the sentinels below work with errors.Is.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrGameNotFound       = &GameError{Kind: KindGameNotFound}
	ErrPlayerNotFound     = &GameError{Kind: KindPlayerNotFound}
	ErrInvalidAction      = &GameError{Kind: KindInvalidAction}
	ErrGameAlreadyStarted = &GameError{Kind: KindGameAlreadyStarted}
	ErrGameNotStarted     = &GameError{Kind: KindGameNotStarted}
	ErrGameAlreadyEnded   = &GameError{Kind: KindGameAlreadyEnded}
	ErrMaxPlayersReached  = &GameError{Kind: KindMaxPlayersReached}
	ErrMinPlayersNotMet   = &GameError{Kind: KindMinPlayersNotMet}
	ErrTurnTimeout        = &GameError{Kind: KindTurnTimeout}
	ErrInvalidState       = &GameError{Kind: KindInvalidState}
	ErrConfig             = &GameError{Kind: KindConfigError}
	ErrAIProvider         = &GameError{Kind: KindAIProviderError}
	ErrSerialization      = &GameError{Kind: KindSerializationError}
	ErrIo                 = &GameError{Kind: KindIoError}
)

func GameNotFound(id string) *GameError {
	return &GameError{Kind: KindGameNotFound, ID: id}
}

func PlayerNotFound(playerID string) *GameError {
	return &GameError{Kind: KindPlayerNotFound, PlayerID: playerID}
}

func InvalidAction(format string, args ...any) *GameError {
	return &GameError{Kind: KindInvalidAction, Reason: fmt.Sprintf(format, args...)}
}

func GameAlreadyStarted() *GameError { return &GameError{Kind: KindGameAlreadyStarted} }

func GameNotStarted() *GameError { return &GameError{Kind: KindGameNotStarted} }

func GameAlreadyEnded() *GameError { return &GameError{Kind: KindGameAlreadyEnded} }

func MaxPlayersReached(max int) *GameError {
	return &GameError{Kind: KindMaxPlayersReached, Limit: max}
}

func MinPlayersNotMet(required int) *GameError {
	return &GameError{Kind: KindMinPlayersNotMet, Limit: required}
}

func TurnTimeout(playerID string) *GameError {
	return &GameError{Kind: KindTurnTimeout, PlayerID: playerID}
}

func InvalidState(format string, args ...any) *GameError {
	return &GameError{Kind: KindInvalidState, Reason: fmt.Sprintf(format, args...)}
}

func ConfigError(format string, args ...any) *GameError {
	return &GameError{Kind: KindConfigError, Reason: fmt.Sprintf(format, args...)}
}

// AIProviderError wraps a decision source failure. err may be nil.
func AIProviderError(detail string, err error) *GameError {
	if err != nil && detail == "" {
		detail = err.Error()
	} else if err != nil {
		detail = detail + ": " + err.Error()
	}
	return &GameError{Kind: KindAIProviderError, Reason: detail, Err: err}
}

func SerializationError(err error) *GameError {
	return &GameError{Kind: KindSerializationError, Err: err}
}

func IoError(err error) *GameError {
	return &GameError{Kind: KindIoError, Err: err}
}

// KindOf extracts the Kind of err. Errors outside the taxonomy are reported as
// KindIoError, since they can only originate from infrastructure collaborators.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindIoError
}

// AsGameError returns err as a *GameError, classifying foreign errors as IoError.
func AsGameError(err error) *GameError {
	if err == nil {
		return nil
	}
	var ge *GameError
	if errors.As(err, &ge) {
		return ge
	}
	return IoError(err)
}

// Recoverable reports whether the session can continue after err.
// Validation failures leave the session untouched; timeouts and provider
// failures are resolved by the timeout policy.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindInvalidState:
		return false
	default:
		return true
	}
}
