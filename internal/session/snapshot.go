package session

import (
	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/games"
	"github.com/flashdeck/backend/internal/render"
)

// Snapshot is the full view a client renders from. The session regenerates
// it wholesale after every state-changing command; clients never diff
// against previous versions.
type Snapshot struct {
	Version int             `json:"version"`
	Deck    DeckView        `json:"deck"`
	Card    render.CardView `json:"card"`
	Game    *GameView       `json:"game,omitempty"`

	// Notice is a transient, user-visible message (duplicate image, quota,
	// unit not found). Sound is the cue name for this transition.
	Notice string `json:"notice,omitempty"`
	Sound  string `json:"sound,omitempty"`
}

type DeckView struct {
	Len          int   `json:"len"`
	CurrentIndex int   `json:"current_index"`
	Flipped      bool  `json:"flipped"`
	LoadedUnitID int64 `json:"loaded_unit_id,omitempty"`
	ClearArmed   bool  `json:"clear_armed,omitempty"`
}

// GameView projects the active game session for the client: the prompt is
// the target card's front image, options are the candidate back texts.
type GameView struct {
	Kind   games.Kind  `json:"kind"`
	Phase  games.Phase `json:"phase"`
	Round  int         `json:"round"`
	Rounds int         `json:"rounds"`
	Score  int         `json:"score"`

	PromptImage deck.ImageRef `json:"prompt_image,omitempty"`
	Options     []string      `json:"options,omitempty"`
	Eliminated  []int         `json:"eliminated,omitempty"`
	Scrambled   string        `json:"scrambled,omitempty"`

	// RemainingMS is the countdown hint for timed rounds. The server
	// deadline stays authoritative; the client only animates it.
	RemainingMS int64 `json:"remaining_ms,omitempty"`

	Results map[int]bool `json:"results,omitempty"`
}

func (s *Session) snapshot(notice, cue string) Snapshot {
	return Snapshot{
		Version: s.version,
		Deck: DeckView{
			Len:          s.store.Len(),
			CurrentIndex: s.store.CurrentIndex,
			Flipped:      s.store.Flipped,
			LoadedUnitID: s.store.LoadedUnitID,
			ClearArmed:   s.store.ClearArmed(),
		},
		Card:   render.Project(s.store),
		Game:   s.gameView(),
		Notice: notice,
		Sound:  cue,
	}
}

func (s *Session) gameView() *GameView {
	g := s.game
	if g == nil {
		return nil
	}
	switch g.kind {
	case games.KindQuiz:
		st := g.quiz
		v := &GameView{
			Kind: g.kind, Phase: st.Phase, Round: st.Round,
			Rounds: len(st.Rounds), Score: st.Score, Results: st.Results,
		}
		if st.Phase == games.PhaseRoundActive || st.Phase == games.PhaseRoundResolved {
			fillRound(v, st.Cards, st.Rounds[st.Round], nil)
		}
		return v

	case games.KindElimination:
		st := g.elim
		v := &GameView{
			Kind: g.kind, Phase: st.Phase, Round: st.Round,
			Rounds: len(st.Rounds), Score: st.Score, Results: st.Results,
		}
		if st.Phase == games.PhaseRoundActive {
			fillRound(v, st.Cards, st.Rounds[st.Round], st.Eliminated)
			if remaining := st.Deadline.Sub(s.now()); remaining > 0 {
				v.RemainingMS = remaining.Milliseconds()
			}
		}
		return v

	case games.KindUnscramble:
		st := g.unscramble
		v := &GameView{
			Kind: g.kind, Phase: st.Phase, Round: st.Round,
			Rounds: len(st.Order), Score: st.Score, Results: st.Results,
		}
		if st.Phase == games.PhaseRoundActive {
			target := st.Order[st.Round]
			v.PromptImage = st.Cards[target].FrontImage
			v.Scrambled = st.Scrambled
		}
		return v
	}
	return nil
}

// fillRound resolves option card indices to their back texts and marks which
// option positions were eliminated this round.
func fillRound(v *GameView, cards []deck.Card, round games.Round, eliminated []int) {
	v.PromptImage = cards[round.Target].FrontImage
	v.Options = make([]string, len(round.Options))
	for i, c := range round.Options {
		v.Options[i] = cards[c].BackText
	}
	for pos, c := range round.Options {
		for _, e := range eliminated {
			if c == e {
				v.Eliminated = append(v.Eliminated, pos)
			}
		}
	}
}
