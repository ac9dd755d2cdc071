package games

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdeck/backend/internal/deck"
)

func sortedLetters(s string) string {
	runes := strings.Split(s, "")
	sort.Strings(runes)
	return strings.Join(runes, "")
}

func startUnscramble(t *testing.T, n int) UnscrambleState {
	t.Helper()
	s, err := NewUnscramble("g1", testCards(n), testRNG())
	require.NoError(t, err)
	_, s, err = ApplyUnscramble(s, Command{Type: CmdStartRound}, testRNG())
	require.NoError(t, err)
	return s
}

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello", "hello"},
		{"  two  words ", "twowords"},
		{"MiXeD\tCase\n", "mixedcase"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeAnswer(tc.in))
	}
}

func TestNewUnscrambleSkipsTextlessCards(t *testing.T) {
	cards := testCards(3)
	cards[1].BackText = "   "

	s, err := NewUnscramble("g1", cards, testRNG())
	require.NoError(t, err)
	assert.Len(t, s.Order, 2)
	assert.NotContains(t, s.Order, 1)
}

func TestNewUnscrambleNeedsText(t *testing.T) {
	cards := testCards(2)
	cards[0].BackText = ""
	cards[1].BackText = " "
	_, err := NewUnscramble("g1", cards, testRNG())
	assert.ErrorIs(t, err, ErrNotEnoughCards)
}

func TestUnscrambleScrambledHasSameLetters(t *testing.T) {
	s := startUnscramble(t, 4)
	target := s.Order[s.Round]
	word := NormalizeAnswer(s.Cards[target].BackText)

	assert.Equal(t, sortedLetters(word), sortedLetters(s.Scrambled))
}

func TestUnscrambleCorrectAnswer(t *testing.T) {
	s := startUnscramble(t, 4)
	target := s.Order[s.Round]

	// Case and whitespace differences must not matter.
	answer := "  " + strings.ToUpper(s.Cards[target].BackText) + " "
	events, s, err := ApplyUnscramble(s, Command{Type: CmdSubmitAnswer, Answer: answer}, testRNG())
	require.NoError(t, err)

	assert.Equal(t, 1, s.Score)
	assert.True(t, ContainsEvent(events, EvtAnswerCorrect))
	assert.True(t, s.Results[target])
	assert.Equal(t, PhaseRoundResolved, s.Phase)
}

func TestUnscrambleWrongAnswer(t *testing.T) {
	s := startUnscramble(t, 4)
	target := s.Order[s.Round]

	events, s, err := ApplyUnscramble(s, Command{Type: CmdSubmitAnswer, Answer: "definitely wrong"}, testRNG())
	require.NoError(t, err)

	assert.Equal(t, 0, s.Score)
	assert.True(t, ContainsEvent(events, EvtAnswerWrong))
	assert.False(t, s.Results[target])
}

func TestUnscrambleFinishes(t *testing.T) {
	s := startUnscramble(t, 2)

	var events []Event
	var err error
	for {
		target := s.Order[s.Round]
		events, s, err = ApplyUnscramble(s, Command{Type: CmdSubmitAnswer, Answer: s.Cards[target].BackText}, testRNG())
		require.NoError(t, err)
		if s.Phase == PhaseFinished {
			break
		}
		_, s, err = ApplyUnscramble(s, Command{Type: CmdStartRound}, testRNG())
		require.NoError(t, err)
	}

	assert.True(t, ContainsEvent(events, EvtGameFinished))
	assert.Equal(t, len(s.Order), s.Score)

	_, _, err = ApplyUnscramble(s, Command{Type: CmdSubmitAnswer, Answer: "x"}, testRNG())
	assert.ErrorIs(t, err, ErrGameFinished)
}

func TestUnscrambleLeavesCardsUntouched(t *testing.T) {
	cards := testCards(3)
	original := make([]deck.Card, len(cards))
	copy(original, cards)

	s, err := NewUnscramble("g1", cards, testRNG())
	require.NoError(t, err)
	_, s, err = ApplyUnscramble(s, Command{Type: CmdStartRound}, testRNG())
	require.NoError(t, err)
	target := s.Order[s.Round]
	_, _, err = ApplyUnscramble(s, Command{Type: CmdSubmitAnswer, Answer: s.Cards[target].BackText}, testRNG())
	require.NoError(t, err)

	assert.Equal(t, original, cards)
}
