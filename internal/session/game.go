package session

import (
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/games"
)

// startGame snapshots the deck into a fresh game session and starts its
// first round. The store itself is never touched by a game.
func (s *Session) startGame(kind games.Kind) (notice, cue string) {
	s.teardownGame()

	id := ulid.Make().String()
	cards := s.store.Cards()
	g := &activeGame{kind: kind, id: id}

	var err error
	switch kind {
	case games.KindQuiz:
		g.quiz, err = games.NewQuiz(id, cards, s.rng)
	case games.KindElimination:
		g.elim, err = games.NewElimination(id, cards, games.DefaultRoundTime, s.rng)
	case games.KindUnscramble:
		g.unscramble, err = games.NewUnscramble(id, cards, s.rng)
	default:
		return "Unknown game.", ""
	}
	if err != nil {
		return noticeFor(err), ""
	}

	s.game = g
	return s.applyGame(games.Command{Type: games.CmdStartRound, Now: s.now()})
}

// applyGame routes a command to the active game's state machine and reacts
// to the returned events (timer arming, sound cues, teardown on finish).
func (s *Session) applyGame(cmd games.Command) (notice, cue string) {
	g := s.game
	if g == nil {
		return "No game in progress.", ""
	}

	var events []games.Event
	var err error
	switch g.kind {
	case games.KindQuiz:
		events, g.quiz, err = games.ApplyQuiz(g.quiz, cmd)
	case games.KindElimination:
		events, g.elim, err = games.ApplyElimination(g.elim, cmd)
	case games.KindUnscramble:
		events, g.unscramble, err = games.ApplyUnscramble(g.unscramble, cmd, s.rng)
	}
	if err != nil {
		return noticeFor(err), ""
	}

	for _, e := range events {
		if e.Sound != "" {
			cue = e.Sound
		}
	}

	switch {
	case games.ContainsEvent(events, games.EvtRoundStarted):
		if g.kind == games.KindElimination {
			s.armTimer(g.id, g.elim.Deadline)
		}
	case games.ContainsEvent(events, games.EvtAnswerCorrect),
		games.ContainsEvent(events, games.EvtAnswerWrong),
		games.ContainsEvent(events, games.EvtTimeExpired):
		// Round is decided; a live countdown must not fire into it.
		s.stopTimer()
	}
	return notice, cue
}

// handleTimerExpired turns a deadline signal into a Timeout command, unless
// the game it belonged to is already gone or replaced.
func (s *Session) handleTimerExpired(msg timerExpired) {
	g := s.game
	if g == nil || g.id != msg.GameID || g.kind != games.KindElimination {
		s.log.Debug("stale timer expiry dropped", zap.String("game", msg.GameID))
		return
	}
	notice, cue := s.applyGame(games.Command{Type: games.CmdTimeout, Now: s.now()})
	s.version++
	s.broadcast(s.snapshot(notice, cue))
}

// teardownGame discards the game session entirely: no partial persistence,
// and any pending deadline is cancelled so a stale expiry cannot execute
// against a torn-down session object.
func (s *Session) teardownGame() {
	s.stopTimer()
	s.game = nil
}

func (s *Session) armTimer(gameID string, deadline time.Time) {
	s.stopTimer()
	d := deadline.Sub(s.now())
	if d < 0 {
		d = 0
	}
	s.timer = time.AfterFunc(d, func() {
		select {
		case s.inbox <- timerExpired{GameID: gameID}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) gamePhase() games.Phase {
	g := s.game
	if g == nil {
		return games.PhaseIdle
	}
	switch g.kind {
	case games.KindQuiz:
		return g.quiz.Phase
	case games.KindElimination:
		return g.elim.Phase
	case games.KindUnscramble:
		return g.unscramble.Phase
	}
	return games.PhaseIdle
}

func (s *Session) gameKind() games.Kind {
	if s.game == nil {
		return ""
	}
	return s.game.kind
}
