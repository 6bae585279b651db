/*
Package genius orchestrates many concurrent multiplayer game sessions played by
humans and AI decision makers across unrelated rule sets.

Every session follows one lifecycle (NotStarted, InProgress, Ended) and one
turn model: the turn owner either submits an action (humans) or is asked by the
engine for a decision bounded by the turn timeout (AI providers). When a
decision is late, fails, or is not one of the offered actions, the configured
timeout policy forfeits the turn, eliminates the player or aborts the session.

# Usage

	eng, err := genius.New(genius.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	snap, err := eng.CreateSession(ctx, games.TypePrisonersDilemma, domain.GameConfig{MaxRounds: 5})
	if err != nil {
		log.Fatal(err)
	}

	_, err = eng.StartSession(ctx, snap.SessionID, []domain.Player{
		{ID: "alice", Source: domain.SourceHuman},
		{ID: "bot", Source: domain.SourceAI, Provider: "mock"},
	})
	if err != nil {
		log.Fatal(err)
	}

	// Humans submit, AI turns are driven by Advance or Run.
	_, err = eng.SubmitAction(ctx, snap.SessionID, domain.NewAction("alice", "cooperate", nil))

# Packages

  - pkg/domain: errors, configuration, actions, snapshots and events.
  - pkg/ports: rules, AI provider and storage contracts.
  - pkg/session: the session state machine and the per-session lock manager.
  - pkg/scheduler: turn deadlines and time-bounded decisions.
  - pkg/games: the built-in rule sets.
  - pkg/adapters: stores (memory, file, Redis, SQLite), providers (mock,
    Ollama, external bot programs) and transports (HTTP, MCP).
  - pkg/persistence/middleware: encryption and PII masking for any store.
*/
package genius
