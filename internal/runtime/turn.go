package runtime

import (
	"context"
	"slices"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/scheduler"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TurnOutcome reports what one Advance did.
//
// Err carries the TurnTimeout, AIProviderError or InvalidAction that made the
// engine fall back to the timeout policy; Policy names the policy applied.
// Waiting is set when the turn belongs to a human whose deadline has not
// passed, in which case nothing happened.
type TurnOutcome struct {
	SessionID string               `json:"session_id"`
	PlayerID  string               `json:"player_id,omitempty"`
	Provider  string               `json:"provider,omitempty"`
	Action    *domain.PlayerAction `json:"action,omitempty"`
	Err       error                `json:"-"`
	Policy    domain.TimeoutPolicy `json:"policy,omitempty"`
	Waiting   bool                 `json:"waiting,omitempty"`
	Snapshot  domain.Snapshot      `json:"snapshot"`
}

// Advance drives the current turn of a session: an AI turn owner is asked for
// a decision bounded by the turn timeout, an expired human turn gets the
// timeout policy. The whole step holds the session lock.
func (e *Engine) Advance(ctx context.Context, sessionID string) (TurnOutcome, error) {
	sess, err := e.live(ctx, sessionID)
	if err != nil {
		return TurnOutcome{SessionID: sessionID}, err
	}

	out := TurnOutcome{SessionID: sessionID}
	var decision *domain.DecisionEvent

	snap, err := e.mutate(ctx, sess, func() error {
		if err := inProgress(sess); err != nil {
			return err
		}
		seat, ok := sess.TurnOwner()
		if !ok {
			return domain.InvalidState("session has no turn owner")
		}
		out.PlayerID = seat.Player.ID
		out.Provider = seat.Source.Label()

		if seat.Source.IsHuman() {
			if !sess.Expired() {
				out.Waiting = true
				return nil
			}
			cause := domain.TurnTimeout(seat.Player.ID)
			out.Err = cause
			out.Policy = sess.Config().TimeoutPolicy
			return e.applyPolicy(sess, seat.Player.ID, cause)
		}

		action, event, err := e.decide(ctx, sess, seat)
		decision = &event
		if err != nil {
			if ctx.Err() != nil {
				// The caller gave up; the turn stays with the player.
				return err
			}
			out.Err = err
			out.Policy = sess.Config().TimeoutPolicy
			return e.applyPolicy(sess, seat.Player.ID, err)
		}

		if err := sess.ApplyAction(action); err != nil {
			if domain.KindOf(err) != domain.KindInvalidAction {
				out.Err = err
				return err
			}
			out.Err = err
			out.Policy = sess.Config().TimeoutPolicy
			return e.applyPolicy(sess, seat.Player.ID, err)
		}
		out.Action = &action
		return nil
	})

	if decision != nil && e.hooks.OnDecision != nil {
		e.hooks.OnDecision(ctx, *decision)
	}
	out.Snapshot = snap
	return out, err
}

// decide asks the seat's provider for an action and re-validates it.
func (e *Engine) decide(ctx context.Context, sess *session.Session, seat session.Seat) (domain.PlayerAction, domain.DecisionEvent, error) {
	playerID := seat.Player.ID
	snap := sess.DecisionView(playerID)
	valid := slices.Clone(snap.Valid)

	ctx, span := e.tracer.Start(ctx, "genius.decision",
		trace.WithAttributes(
			attribute.String("genius.session_id", sess.ID()),
			attribute.String("genius.game_type", string(snap.GameType)),
			attribute.String("genius.player_id", playerID),
			attribute.String("genius.provider", seat.Source.Label()),
			attribute.Int("genius.turn", snap.Turn),
		),
	)
	defer span.End()

	event := domain.DecisionEvent{
		SessionID: sess.ID(),
		GameType:  snap.GameType,
		PlayerID:  playerID,
		Provider:  seat.Source.Label(),
	}

	start := time.Now()
	dec, err := scheduler.Execute(ctx, sess.Scheduler(), playerID, func(ctx context.Context) (domain.AIDecision, error) {
		return seat.Source.Provider.MakeDecision(ctx, snap, playerID, valid)
	})
	event.Duration = time.Since(start)

	var action domain.PlayerAction
	if err == nil {
		action, err = accept(dec, playerID, valid)
	} else if _, ok := err.(*domain.GameError); !ok {
		err = domain.AIProviderError("", err)
	}

	event.Err = err
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
		e.logger.Warn("decision failed",
			"session_id", sess.ID(),
			"player_id", playerID,
			"provider", event.Provider,
			"error", err,
		)
		return domain.PlayerAction{}, event, err
	}
	span.SetAttributes(attribute.String("genius.action", action.Type))
	return action, event, nil
}

// accept checks a provider decision against the offered actions.
func accept(dec domain.AIDecision, playerID string, valid []string) (domain.PlayerAction, error) {
	action := dec.Action()
	if action.PlayerID == "" {
		action.PlayerID = playerID
	}
	if action.PlayerID != playerID {
		return domain.PlayerAction{}, domain.InvalidAction("provider answered for %s instead of %s", action.PlayerID, playerID)
	}
	if !slices.Contains(valid, action.Type) {
		return domain.PlayerAction{}, domain.InvalidAction("provider chose %q, expected one of %v", action.Type, valid)
	}
	if action.Reasoning == "" {
		action.Reasoning = dec.Reasoning()
	}
	if action.Confidence == nil {
		c := dec.Confidence()
		action.Confidence = &c
	}
	return action, nil
}

// applyPolicy runs the configured timeout policy for playerID.
func (e *Engine) applyPolicy(sess *session.Session, playerID string, cause error) error {
	switch sess.Config().TimeoutPolicy {
	case domain.PolicyEliminatePlayer:
		return sess.Eliminate(playerID, cause)
	case domain.PolicyAbortSession:
		return sess.Abort(cause)
	default:
		return sess.ForfeitTurn(playerID, cause)
	}
}

// Run drives a session until it ends and returns its result. AI turns are
// advanced immediately; human turns are awaited until a submission arrives
// or their deadline passes.
func (e *Engine) Run(ctx context.Context, sessionID string) (*domain.GameResult, error) {
	sess, err := e.live(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	diffs, cancel := e.broker.Subscribe(sessionID)
	defer cancel()

	for {
		switch sess.Status() {
		case domain.StatusEnded:
			res, _ := sess.Result()
			return res, nil
		case domain.StatusNotStarted:
			return nil, domain.GameNotStarted()
		}

		seat, ok := sess.TurnOwner()
		if ok && !seat.Source.IsHuman() {
			if _, err := e.Advance(ctx, sessionID); err != nil && !settled(err) {
				return nil, err
			}
			continue
		}

		wait := max(sess.Deadline().Sub(e.now()), 0) + time.Millisecond
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, domain.IoError(ctx.Err())
		case _, open := <-diffs:
			timer.Stop()
			if !open {
				return nil, domain.GameNotFound(sessionID)
			}
		case <-timer.C:
			if _, err := e.Advance(ctx, sessionID); err != nil && !settled(err) {
				return nil, err
			}
		}
	}
}

// settled reports errors that only mean the session moved on meanwhile.
func settled(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindGameAlreadyEnded, domain.KindInvalidState:
		return true
	}
	return false
}

func inProgress(sess *session.Session) error {
	switch sess.Status() {
	case domain.StatusNotStarted:
		return domain.GameNotStarted()
	case domain.StatusEnded:
		return domain.GameAlreadyEnded()
	}
	return nil
}
