package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/ports"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/scheduler"
)

// Seat binds a player to the source of their decisions.
type Seat struct {
	Player domain.Player
	Source ports.DecisionSource
}

// Session is one running game. All methods are safe for concurrent use;
// mutating methods are additionally expected to run under Manager.WithLock
// so that at most one action is in flight per session.
type Session struct {
	mu sync.RWMutex

	id    string
	cfg   domain.GameConfig
	rules ports.Rules
	sched *scheduler.Scheduler
	now   func() time.Time

	status     domain.Status
	seats      []Seat
	owner      int
	turn       int
	deadline   time.Time
	state      domain.GameState
	result     *domain.GameResult
	events     []domain.Event
	eliminated map[string]bool
	// skips counts turns passed in a row without a state change.
	skips int

	createdAt time.Time
	startedAt time.Time
	updatedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the time source of the session and its scheduler.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScheduler overrides the scheduler derived from the game configuration.
func WithScheduler(sched *scheduler.Scheduler) Option {
	return func(s *Session) {
		s.sched = sched
	}
}

// New creates a session in the NotStarted state.
func New(id string, cfg domain.GameConfig, rules ports.Rules, opts ...Option) *Session {
	s := &Session{
		id:         id,
		cfg:        cfg,
		rules:      rules,
		now:        time.Now,
		status:     domain.StatusNotStarted,
		owner:      -1,
		eliminated: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = scheduler.ForConfig(cfg, scheduler.WithClock(s.now))
	}
	s.createdAt = s.now()
	s.updatedAt = s.createdAt
	s.record(domain.Event{Type: domain.EventSessionCreated, Detail: string(cfg.GameType)})
	return s
}

func (s *Session) ID() string                      { return s.id }
func (s *Session) Config() domain.GameConfig       { return s.cfg }
func (s *Session) Scheduler() *scheduler.Scheduler { return s.sched }
func (s *Session) CreatedAt() time.Time            { return s.createdAt }

// Status returns the lifecycle state.
func (s *Session) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Turn returns the number of turns played so far.
func (s *Session) Turn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// Deadline returns the bookkeeping deadline of the current turn, zero when
// no turn is pending.
func (s *Session) Deadline() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deadline
}

// Expired reports whether the current turn outlived its deadline.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == domain.StatusInProgress && s.sched.IsExpired(s.deadline)
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Result returns the final result once the session has ended.
func (s *Session) Result() (*domain.GameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.Clone(), s.result != nil
}

// TurnOwner returns the seat expected to act next.
func (s *Session) TurnOwner() (Seat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != domain.StatusInProgress || s.owner < 0 {
		return Seat{}, false
	}
	return s.seats[s.owner], true
}

// Seat returns the seat of playerID.
func (s *Session) Seat(playerID string) (Seat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.seatIndex(playerID)
	if idx < 0 {
		return Seat{}, false
	}
	return s.seats[idx], true
}

// ValidActions lists what the turn owner may do right now.
func (s *Session) ValidActions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != domain.StatusInProgress || s.owner < 0 {
		return nil
	}
	valid, _ := s.validActions(s.seats[s.owner].Player.ID)
	return valid
}

// Start seats the players and hands the first turn to the first player who
// can act.
func (s *Session) Start(seats []Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case domain.StatusInProgress:
		return domain.GameAlreadyStarted()
	case domain.StatusEnded:
		return domain.GameAlreadyEnded()
	}

	if len(seats) < s.cfg.MinPlayers {
		return domain.MinPlayersNotMet(s.cfg.MinPlayers)
	}
	if len(seats) > s.cfg.MaxPlayers {
		return domain.MaxPlayersReached(s.cfg.MaxPlayers)
	}

	seen := make(map[string]bool, len(seats))
	players := make([]domain.Player, 0, len(seats))
	for _, seat := range seats {
		id := seat.Player.ID
		if id == "" {
			return domain.ConfigError("player id must not be empty")
		}
		if seen[id] {
			return domain.ConfigError("duplicate player id %q", id)
		}
		seen[id] = true
		players = append(players, seat.Player)
	}

	var state domain.GameState
	err := guard("setup", func() error {
		var err error
		state, err = s.rules.Setup(s.cfg, players)
		return err
	})
	if err != nil {
		if _, ok := err.(*domain.GameError); ok {
			return err
		}
		return domain.ConfigError("%s setup: %v", s.cfg.GameType, err)
	}

	s.seats = slices.Clone(seats)
	s.state = state
	s.status = domain.StatusInProgress
	s.startedAt = s.now()
	s.record(domain.Event{Type: domain.EventSessionStarted, Detail: fmt.Sprintf("%d players", len(seats))})

	return s.settle(-1)
}

// ApplyAction validates action against the turn owner and the rules and, if
// legal, replaces the state. Rejected actions leave the session untouched.
func (s *Session) ApplyAction(action domain.PlayerAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInProgress(); err != nil {
		return err
	}
	idx := s.seatIndex(action.PlayerID)
	if idx < 0 {
		return domain.PlayerNotFound(action.PlayerID)
	}
	if s.eliminated[action.PlayerID] {
		return domain.InvalidAction("player %s has been eliminated", action.PlayerID)
	}
	if idx != s.owner {
		return domain.InvalidAction("not the turn of %s, waiting for %s", action.PlayerID, s.seats[s.owner].Player.ID)
	}

	valid, err := s.validActions(action.PlayerID)
	if err != nil {
		s.fail(err)
		return err
	}
	if !slices.Contains(valid, action.Type) {
		return domain.InvalidAction("action %q is not allowed for %s, expected one of %v", action.Type, action.PlayerID, valid)
	}

	return s.apply(action)
}

// ForfeitTurn gives up the current turn of playerID after cause (a timeout
// or a provider failure). The rules' default action is played if they offer
// one, otherwise the turn passes.
func (s *Session) ForfeitTurn(playerID string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOwner(playerID); err != nil {
		return err
	}
	s.recordCause(playerID, cause)

	if f, ok := s.rules.(ports.Forfeiter); ok {
		var (
			action domain.PlayerAction
			has    bool
		)
		err := guard("default action", func() error {
			action, has = f.DefaultAction(s.state, playerID)
			return nil
		})
		if err != nil {
			s.fail(err)
			return err
		}
		if has {
			action.PlayerID = playerID
			s.record(domain.Event{Type: domain.EventTurnForfeited, PlayerID: playerID, Action: action.Type, Detail: "default action"})
			err := s.apply(action)
			if domain.KindOf(err) != domain.KindInvalidAction {
				return err
			}
			// The default move was rejected; fall back to passing the turn.
		}
	}

	s.record(domain.Event{Type: domain.EventTurnForfeited, PlayerID: playerID, Detail: "turn skipped"})
	s.turn++
	s.skips++
	if s.skips >= max(s.actors(), 1) {
		err := domain.InvalidState("no player made progress for a full rotation")
		s.fail(err)
		return err
	}
	return s.settle(s.owner)
}

// Eliminate removes playerID from the rotation. When at most one player
// remains the session ends.
func (s *Session) Eliminate(playerID string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInProgress(); err != nil {
		return err
	}
	idx := s.seatIndex(playerID)
	if idx < 0 {
		return domain.PlayerNotFound(playerID)
	}
	if s.eliminated[playerID] {
		return nil
	}

	s.recordCause(playerID, cause)
	s.eliminated[playerID] = true
	s.skips = 0
	s.record(domain.Event{Type: domain.EventPlayerEliminated, PlayerID: playerID})

	if e, ok := s.rules.(ports.Eliminator); ok {
		err := guard("eliminate", func() error {
			s.state = e.Eliminate(s.state, playerID)
			return nil
		})
		if err != nil {
			s.fail(err)
			return err
		}
	}

	remaining := s.activePlayers()
	switch len(remaining) {
	case 0:
		err := domain.InvalidState("no players remain")
		s.fail(err)
		return nil
	case 1:
		res, over, err := s.terminal()
		switch {
		case err != nil:
			s.fail(err)
		case over:
			s.end(res)
		default:
			s.end(&domain.GameResult{Winners: remaining, Outcome: fmt.Sprintf("%s is the last player standing", remaining[0])})
		}
		return nil
	}

	if idx == s.owner {
		s.turn++
		return s.settle(s.owner)
	}
	return nil
}

// Abort ends the session with cause recorded in its result. A cause raised
// during a turn is also logged against the turn owner.
func (s *Session) Abort(cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return domain.GameAlreadyEnded()
	}
	if s.status == domain.StatusInProgress && s.owner >= 0 {
		s.recordCause(s.seats[s.owner].Player.ID, cause)
	}
	ge := domain.AsGameError(cause)
	if ge == nil {
		ge = domain.InvalidState("session aborted")
	}
	s.end(&domain.GameResult{Outcome: "aborted: " + ge.Error(), Error: ge})
	return nil
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		SessionID: s.id,
		GameType:  s.cfg.GameType,
		Config:    s.cfg,
		Status:    s.status,
		Players:   make([]domain.Player, 0, len(s.seats)),
		Turn:      s.turn,
		Deadline:  s.deadline,
		Result:    s.result.Clone(),
		Events:    slices.Clone(s.events),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	for _, seat := range s.seats {
		snap.Players = append(snap.Players, seat.Player)
		if s.eliminated[seat.Player.ID] {
			snap.Eliminated = append(snap.Eliminated, seat.Player.ID)
		}
	}
	if s.state != nil {
		snap.State = s.state.Clone()
	}
	if s.status == domain.StatusInProgress && s.owner >= 0 {
		snap.TurnOwner = s.seats[s.owner].Player.ID
		snap.Valid, _ = s.validActions(snap.TurnOwner)
	}
	return snap
}

// DecisionView returns the snapshot playerID decides on: bookkeeping is
// stripped and the state is narrowed to what the rules let that player see.
func (s *Session) DecisionView(playerID string) domain.Snapshot {
	snap := s.Snapshot().ForDecision()
	v, ok := s.rules.(ports.Viewer)
	if !ok {
		return snap
	}
	gs, ok := snap.State.(domain.GameState)
	if !ok {
		return snap
	}
	err := guard("view", func() error {
		snap.State = v.View(gs, playerID)
		return nil
	})
	if err != nil {
		snap.State = nil
	}
	return snap
}

func (s *Session) checkInProgress() error {
	switch s.status {
	case domain.StatusNotStarted:
		return domain.GameNotStarted()
	case domain.StatusEnded:
		return domain.GameAlreadyEnded()
	}
	return nil
}

func (s *Session) checkOwner(playerID string) error {
	if err := s.checkInProgress(); err != nil {
		return err
	}
	idx := s.seatIndex(playerID)
	if idx < 0 {
		return domain.PlayerNotFound(playerID)
	}
	if idx != s.owner {
		return domain.InvalidAction("not the turn of %s", playerID)
	}
	return nil
}

// apply runs the rules for a validated action. Must be called with mu held.
func (s *Session) apply(action domain.PlayerAction) error {
	if action.Timestamp.IsZero() {
		action.Timestamp = s.now()
	}

	var (
		legal  bool
		reason string
	)
	if err := guard("legality check", func() error {
		legal, reason = s.rules.IsLegal(s.state, action)
		return nil
	}); err != nil {
		s.fail(err)
		return err
	}
	if !legal {
		if reason == "" {
			reason = fmt.Sprintf("%s is not legal now", action.Type)
		}
		return domain.InvalidAction("%s", reason)
	}

	var next domain.GameState
	err := guard("apply", func() error {
		var err error
		next, err = s.rules.Apply(s.state, action)
		return err
	})
	if err != nil {
		ge, ok := err.(*domain.GameError)
		if ok && ge.Kind == domain.KindInvalidAction {
			return ge
		}
		if !ok || ge.Kind != domain.KindInvalidState {
			err = domain.InvalidState("apply %s: %v", action.Type, err)
		}
		s.fail(err)
		return err
	}
	if next == nil {
		err := domain.InvalidState("apply %s returned no state", action.Type)
		s.fail(err)
		return err
	}

	s.state = next
	s.turn++
	s.skips = 0
	s.record(domain.Event{Type: domain.EventActionApplied, PlayerID: action.PlayerID, Action: action.Type, Detail: action.Reasoning})
	return s.settle(s.owner)
}

// settle ends the session if the game is over, otherwise hands the turn to
// the next player after from who can act. Must be called with mu held.
func (s *Session) settle(from int) error {
	res, over, err := s.terminal()
	if err != nil {
		s.fail(err)
		return err
	}
	if over {
		s.end(res)
		return nil
	}

	n := len(s.seats)
	for i := 1; i <= n; i++ {
		idx := ((from+i)%n + n) % n
		id := s.seats[idx].Player.ID
		if s.eliminated[id] {
			continue
		}
		valid, err := s.validActions(id)
		if err != nil {
			s.fail(err)
			return err
		}
		if len(valid) > 0 {
			s.owner = idx
			s.deadline = s.sched.Deadline(s.now())
			s.updatedAt = s.now()
			return nil
		}
	}

	err = domain.InvalidState("no player can act and the game is not over")
	s.fail(err)
	return err
}

func (s *Session) terminal() (*domain.GameResult, bool, error) {
	var (
		res  *domain.GameResult
		over bool
	)
	err := guard("terminal check", func() error {
		res, over = s.rules.IsTerminal(s.state)
		return nil
	})
	return res, over, err
}

func (s *Session) validActions(playerID string) ([]string, error) {
	var valid []string
	err := guard("valid actions", func() error {
		valid = s.rules.ValidActions(s.state, playerID)
		return nil
	})
	return valid, err
}

// fail force-ends the session after an unrecoverable error.
func (s *Session) fail(err error) {
	ge := domain.AsGameError(err)
	s.record(domain.Event{Type: domain.EventInvalidState, Detail: ge.Error(), ErrorKind: ge.Kind})
	s.end(&domain.GameResult{Outcome: "ended by error: " + ge.Error(), Error: ge})
}

func (s *Session) end(res *domain.GameResult) {
	if s.status == domain.StatusEnded {
		return
	}
	if res == nil {
		res = &domain.GameResult{}
	}
	now := s.now()
	res.SessionID = s.id
	res.GameType = s.cfg.GameType
	res.TotalTurns = s.turn
	res.EndedAt = now
	if !s.startedAt.IsZero() {
		res.Duration = now.Sub(s.startedAt)
	}
	if res.Winners == nil {
		res.Winners = []string{}
	}

	s.result = res
	s.status = domain.StatusEnded
	s.owner = -1
	s.deadline = time.Time{}
	s.record(domain.Event{Type: domain.EventSessionEnded, Detail: res.Outcome})
}

func (s *Session) recordCause(playerID string, cause error) {
	if cause == nil {
		return
	}
	kind := domain.KindOf(cause)
	typ := domain.EventProviderError
	if kind == domain.KindTurnTimeout {
		typ = domain.EventTurnTimeout
	}
	s.record(domain.Event{Type: typ, PlayerID: playerID, Detail: cause.Error(), ErrorKind: kind})
}

func (s *Session) record(e domain.Event) {
	now := s.now()
	e.Timestamp = now
	e.SessionID = s.id
	e.Turn = s.turn
	s.events = append(s.events, e)
	s.updatedAt = now
}

func (s *Session) seatIndex(playerID string) int {
	for i, seat := range s.seats {
		if seat.Player.ID == playerID {
			return i
		}
	}
	return -1
}

func (s *Session) activePlayers() []string {
	var out []string
	for _, seat := range s.seats {
		if !s.eliminated[seat.Player.ID] {
			out = append(out, seat.Player.ID)
		}
	}
	return out
}

// actors counts the active players who have something to play.
func (s *Session) actors() int {
	n := 0
	for _, id := range s.activePlayers() {
		if valid, err := s.validActions(id); err == nil && len(valid) > 0 {
			n++
		}
	}
	return n
}

// guard turns a panic inside a rules call into an InvalidState.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.InvalidState("rules %s panicked: %v", op, r)
		}
	}()
	return fn()
}
