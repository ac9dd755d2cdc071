package games

import (
	"maps"
	"math/rand"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/sound"
)

// QuizOptionCount is the option set size for a multiple-choice round: one
// target plus up to three distractors.
const QuizOptionCount = 4

// QuizState is the session state of a multiple-choice game.
// Idle -> RoundActive -> RoundResolved -> (next round | Finished).
type QuizState struct {
	ID      string
	Phase   Phase
	Cards   []deck.Card
	Rounds  []Round
	Round   int
	Score   int
	Results map[int]bool
}

// NewQuiz snapshots the deck and plans one round per card.
func NewQuiz(id string, cards []deck.Card, rng *rand.Rand) (QuizState, error) {
	if len(cards) < 2 {
		return QuizState{}, ErrNotEnoughCards
	}
	return QuizState{
		ID:      id,
		Phase:   PhaseIdle,
		Cards:   cards,
		Rounds:  planRounds(len(cards), min(QuizOptionCount, len(cards)), rng),
		Results: make(map[int]bool),
	}, nil
}

// ApplyQuiz advances the quiz state machine.
func ApplyQuiz(s QuizState, cmd Command) ([]Event, QuizState, error) {
	if s.Phase == PhaseFinished {
		return nil, s, ErrGameFinished
	}
	newState := s

	switch cmd.Type {
	case CmdStartRound:
		switch s.Phase {
		case PhaseIdle:
			newState.Phase = PhaseRoundActive
		case PhaseRoundResolved:
			newState.Round++
			newState.Phase = PhaseRoundActive
		default:
			return nil, s, ErrWrongPhase
		}
		return []Event{{Type: EvtRoundStarted, Round: newState.Round, CardIndex: newState.Rounds[newState.Round].Target}}, newState, nil

	case CmdChoose:
		if s.Phase != PhaseRoundActive {
			return nil, s, ErrWrongPhase
		}
		round := s.Rounds[s.Round]
		if cmd.Choice < 0 || cmd.Choice >= len(round.Options) {
			return nil, s, ErrBadChoice
		}

		correct := round.Options[cmd.Choice] == round.Target
		// Results is cloned so the caller's prior state stays untouched.
		newState.Results = maps.Clone(s.Results)
		newState.Results[round.Target] = correct
		events := make([]Event, 0, 2)
		if correct {
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

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// finishEvent ends a game; a perfect score earns the victory cue.
func finishEvent(round, score, rounds int) Event {
	e := Event{Type: EvtGameFinished, Round: round}
	if score == rounds {
		e.Sound = sound.Victory
	}
	return e
}
