package games

import (
	"maps"
	"math/rand"
	"slices"
	"time"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/sound"
)

// DefaultRoundTime is the countdown for one elimination round.
const DefaultRoundTime = 10 * time.Second

// EliminationState is the timed variant. A wrong choice eliminates that
// option and the round continues; the deadline forces TimeExpired, counted
// as an incorrect answer.
// Idle -> RoundActive(deadline) -> (TimeExpired | RoundResolved) -> Finished.
type EliminationState struct {
	ID        string
	Phase     Phase
	Cards     []deck.Card
	Rounds    []Round
	Round     int
	Score     int
	Results   map[int]bool
	RoundTime time.Duration

	// Deadline of the active round. The session actor arms a timer against
	// it and delivers CmdTimeout; stale expiries are dropped by game id.
	Deadline time.Time

	// eliminated this round; a clean first-try answer scores.
	Eliminated []int
}

func NewElimination(id string, cards []deck.Card, roundTime time.Duration, rng *rand.Rand) (EliminationState, error) {
	if len(cards) < 2 {
		return EliminationState{}, ErrNotEnoughCards
	}
	if roundTime <= 0 {
		roundTime = DefaultRoundTime
	}
	return EliminationState{
		ID:        id,
		Phase:     PhaseIdle,
		Cards:     cards,
		Rounds:    planRounds(len(cards), min(QuizOptionCount, len(cards)), rng),
		Results:   make(map[int]bool),
		RoundTime: roundTime,
	}, nil
}

// ApplyElimination advances the elimination state machine. Commands carry
// the wall clock so the machine itself stays pure.
func ApplyElimination(s EliminationState, cmd Command) ([]Event, EliminationState, error) {
	if s.Phase == PhaseFinished {
		return nil, s, ErrGameFinished
	}
	newState := s

	switch cmd.Type {
	case CmdStartRound:
		switch s.Phase {
		case PhaseIdle:
			newState.Phase = PhaseRoundActive
		case PhaseRoundResolved, PhaseTimeExpired:
			newState.Round++
			newState.Phase = PhaseRoundActive
		default:
			return nil, s, ErrWrongPhase
		}
		newState.Eliminated = nil
		newState.Deadline = cmd.Now.Add(s.RoundTime)
		return []Event{{Type: EvtRoundStarted, Round: newState.Round, CardIndex: newState.Rounds[newState.Round].Target}}, newState, nil

	case CmdChoose:
		if s.Phase != PhaseRoundActive {
			return nil, s, ErrWrongPhase
		}
		round := s.Rounds[s.Round]
		if cmd.Choice < 0 || cmd.Choice >= len(round.Options) {
			return nil, s, ErrBadChoice
		}
		chosen := round.Options[cmd.Choice]

		if chosen != round.Target {
			if !slices.Contains(newState.Eliminated, chosen) {
				newState.Eliminated = append(newState.Eliminated, chosen)
			}
			return []Event{{Type: EvtOptionEliminated, Round: s.Round, CardIndex: chosen, Sound: sound.Wrong}}, newState, nil
		}

		firstTry := len(s.Eliminated) == 0
		newState.Results = maps.Clone(s.Results)
		newState.Results[round.Target] = firstTry
		events := make([]Event, 0, 2)
		if firstTry {
			newState.Score++
			events = append(events, Event{Type: EvtAnswerCorrect, Round: s.Round, CardIndex: round.Target, Sound: sound.Correct})
		} else {
			events = append(events, Event{Type: EvtAnswerWrong, Round: s.Round, CardIndex: round.Target, Sound: sound.Wrong})
		}
		if s.Round == len(s.Rounds)-1 {
			newState.Phase = PhaseFinished
			events = append(events, finishEvent(s.Round, newState.Score, len(newState.Rounds)))
		} else {
			newState.Phase = PhaseRoundResolved
		}
		return events, newState, nil

	case CmdTimeout:
		if s.Phase != PhaseRoundActive {
			// Timer fired after the round resolved; nothing to do.
			return nil, s, ErrWrongPhase
		}
		round := s.Rounds[s.Round]
		newState.Results = maps.Clone(s.Results)
		newState.Results[round.Target] = false
		events := []Event{{Type: EvtTimeExpired, Round: s.Round, CardIndex: round.Target, Sound: sound.Wrong}}
		if s.Round == len(s.Rounds)-1 {
			newState.Phase = PhaseFinished
			events = append(events, finishEvent(s.Round, newState.Score, len(newState.Rounds)))
		} else {
			newState.Phase = PhaseTimeExpired
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}
