// Package games holds the three practice-game state machines. Each game is a
// pure Apply(state, cmd) -> (events, state, error) function over a session
// state value; the session actor owns timers and side effects. Games read a
// snapshot of the card store taken at start and never mutate the store.
package games

import (
	"errors"
	"math/rand"
	"time"
)

var ErrGameFinished = errors.New("game already finished")
var ErrWrongPhase = errors.New("command not valid in current phase")
var ErrBadChoice = errors.New("choice out of range")
var ErrNotEnoughCards = errors.New("not enough cards to start game")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Kind string

const (
	KindQuiz        Kind = "quiz"
	KindElimination Kind = "elimination"
	KindUnscramble  Kind = "unscramble"
)

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseRoundActive   Phase = "round_active"
	PhaseRoundResolved Phase = "round_resolved"
	PhaseTimeExpired   Phase = "time_expired"
	PhaseFinished      Phase = "finished"
)

type CommandType string

const (
	CmdStartRound   CommandType = "StartRound"
	CmdChoose       CommandType = "Choose"
	CmdSubmitAnswer CommandType = "SubmitAnswer"
	CmdTimeout      CommandType = "Timeout"
)

type Command struct {
	Type   CommandType
	Choice int
	Answer string
	Now    time.Time
}

type EventType string

const (
	EvtRoundStarted     EventType = "RoundStarted"
	EvtAnswerCorrect    EventType = "AnswerCorrect"
	EvtAnswerWrong      EventType = "AnswerWrong"
	EvtOptionEliminated EventType = "OptionEliminated"
	EvtTimeExpired      EventType = "TimeExpired"
	EvtGameFinished     EventType = "GameFinished"
)

// Event describes a state transition for the edge: which card it concerned
// and which sound cue, if any, should accompany it.
type Event struct {
	Type      EventType
	Round     int
	CardIndex int
	Sound     string
}

// Round is one question: a target card plus the option set shown for it.
// Options are card indices into the game's card snapshot, sampled without
// replacement, and always contain the target.
type Round struct {
	Target  int
	Options []int
}

// planRounds builds one round per card. Targets are drawn uniformly per
// round but never repeat the immediately preceding target when more than one
// card exists. Distractors are sampled without replacement from the rest.
func planRounds(n, optionCount int, rng *rand.Rand) []Round {
	rounds := make([]Round, 0, n)
	prev := -1
	for r := 0; r < n; r++ {
		target := rng.Intn(n)
		for n > 1 && target == prev {
			target = rng.Intn(n)
		}
		prev = target

		options := []int{target}
		for _, c := range rng.Perm(n) {
			if len(options) == optionCount {
				break
			}
			if c != target {
				options = append(options, c)
			}
		}
		rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		rounds = append(rounds, Round{Target: target, Options: options})
	}
	return rounds
}

// ContainsEvent reports whether an event of the given type is present.
func ContainsEvent(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}
