package games

import (
	"maps"
	"math/rand"
	"strings"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/sound"
)

// UnscrambleState is the letter-unscramble variant: each round scrambles the
// back text of one card and checks a submitted letter ordering against it.
// Idle -> RoundActive -> Checking -> RoundResolved -> Finished; Checking is
// transient, the comparison is deterministic and resolves inside Apply.
type UnscrambleState struct {
	ID      string
	Phase   Phase
	Cards   []deck.Card
	Order   []int // card indices with non-empty back text, play order
	Round   int
	Score   int
	Results map[int]bool

	// Scrambled is the letter ordering shown for the active round.
	Scrambled string
}

// NewUnscramble snapshots the deck and queues every card that has back text,
// in random order.
func NewUnscramble(id string, cards []deck.Card, rng *rand.Rand) (UnscrambleState, error) {
	var order []int
	for i, c := range cards {
		if NormalizeAnswer(c.BackText) != "" {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return UnscrambleState{}, ErrNotEnoughCards
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return UnscrambleState{
		ID:      id,
		Phase:   PhaseIdle,
		Cards:   cards,
		Order:   order,
		Results: make(map[int]bool),
	}, nil
}

// ApplyUnscramble advances the unscramble state machine. Scrambling needs
// randomness, so this variant takes the session rng alongside the command.
func ApplyUnscramble(s UnscrambleState, cmd Command, rng *rand.Rand) ([]Event, UnscrambleState, error) {
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
		target := newState.Order[newState.Round]
		newState.Scrambled = scramble(NormalizeAnswer(newState.Cards[target].BackText), rng)
		return []Event{{Type: EvtRoundStarted, Round: newState.Round, CardIndex: target}}, newState, nil

	case CmdSubmitAnswer:
		if s.Phase != PhaseRoundActive {
			return nil, s, ErrWrongPhase
		}
		target := s.Order[s.Round]
		correct := NormalizeAnswer(cmd.Answer) == NormalizeAnswer(s.Cards[target].BackText)
		newState.Results = maps.Clone(s.Results)
		newState.Results[target] = correct
		events := make([]Event, 0, 2)
		if correct {
			newState.Score++
			events = append(events, Event{Type: EvtAnswerCorrect, Round: s.Round, CardIndex: target, Sound: sound.Correct})
		} else {
			events = append(events, Event{Type: EvtAnswerWrong, Round: s.Round, CardIndex: target, Sound: sound.Wrong})
		}
		if s.Round == len(s.Order)-1 {
			newState.Phase = PhaseFinished
			events = append(events, finishEvent(s.Round, newState.Score, len(newState.Order)))
		} else {
			newState.Phase = PhaseRoundResolved
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// NormalizeAnswer lowercases and strips all whitespace so letter ordering is
// the only thing compared.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// scramble shuffles the letters, retrying a few times so the puzzle differs
// from the answer whenever the word allows it.
func scramble(word string, rng *rand.Rand) string {
	runes := []rune(word)
	if len(runes) < 2 {
		return word
	}
	for attempt := 0; attempt < 8; attempt++ {
		rng.Shuffle(len(runes), func(i, j int) { runes[i], runes[j] = runes[j], runes[i] })
		if string(runes) != word {
			break
		}
	}
	return string(runes)
}
