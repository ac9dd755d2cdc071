package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/games"
	"github.com/flashdeck/backend/internal/store"
)

func testDeps(t *testing.T) (*store.UnitRepo, *store.SessionSlot) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log := zap.NewNop()
	return store.NewUnitRepo(db, log), store.NewSessionSlot(db, 0, log)
}

func newTestSession(t *testing.T) (*Session, *store.UnitRepo, *store.SessionSlot) {
	t.Helper()
	repo, slot := testDeps(t)
	s := New(context.Background(), "TEST01", repo, slot, zap.NewNop())
	t.Cleanup(func() { s.Inbox() <- Shutdown{} })
	return s, repo, slot
}

func getView(s *Session) View {
	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	return <-reply
}

func send(s *Session, cmd Command) {
	s.Inbox() <- FromClient{Cmd: cmd}
}

func imageRef(n int) deck.ImageRef {
	return deck.ImageRef(fmt.Sprintf("data:image/png;base64,img-%d", n))
}

func addCard(s *Session, n int) {
	send(s, Command{Type: CmdAddCard, FrontImage: imageRef(n), BackText: fmt.Sprintf("word%d", n)})
}

func TestAddCardBroadcastsSnapshot(t *testing.T) {
	s, _, _ := newTestSession(t)

	out := make(chan Snapshot, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := <-out
	assert.Equal(t, 0, first.Deck.Len, "join snapshot reflects the empty deck")

	addCard(s, 1)
	snap := <-out
	assert.Equal(t, 1, snap.Deck.Len)
	assert.Greater(t, snap.Version, first.Version)
	assert.False(t, snap.Card.Empty)
	assert.Equal(t, imageRef(1), snap.Card.Image)
}

func TestLeaveClosesClientOutbox(t *testing.T) {
	s, _, _ := newTestSession(t)

	out := make(chan Snapshot, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	<-out

	// Mimic the edge's writer loop: it must exit once the client leaves.
	done := make(chan struct{})
	go func() {
		for range out {
		}
		close(done)
	}()

	s.Inbox() <- Leave{ClientID: "c1"}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("leave must close the client outbox so the writer loop exits")
	}

	// A second leave for the same client must not double-close.
	s.Inbox() <- Leave{ClientID: "c1"}
	getView(s)
}

func TestDuplicateAddSurfacesNotice(t *testing.T) {
	s, _, _ := newTestSession(t)

	out := make(chan Snapshot, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	<-out

	addCard(s, 1)
	<-out
	addCard(s, 1)
	snap := <-out

	assert.Equal(t, 1, snap.Deck.Len, "duplicate insert leaves the deck unchanged")
	assert.NotEmpty(t, snap.Notice)
}

func TestClearAllNeedsSecondCall(t *testing.T) {
	s, _, _ := newTestSession(t)
	addCard(s, 1)
	addCard(s, 2)

	send(s, Command{Type: CmdClearAll})
	v := getView(s)
	assert.Equal(t, 2, v.Deck.Len, "one call only arms the confirmation")
	assert.True(t, v.Deck.ClearArmed)

	send(s, Command{Type: CmdClearAll})
	v = getView(s)
	assert.Equal(t, 0, v.Deck.Len)
}

func TestDeckPersistsToSlot(t *testing.T) {
	s, _, slot := newTestSession(t)
	addCard(s, 1)
	addCard(s, 2)

	require.Eventually(t, func() bool {
		cards, err := slot.Restore(context.Background(), "TEST01")
		return err == nil && len(cards) == 2
	}, 2*time.Second, 10*time.Millisecond, "deck mutations must reach the session slot")
}

func TestNewRestoresFromSlot(t *testing.T) {
	repo, slot := testDeps(t)
	cards := []deck.Card{{FrontImage: imageRef(1), BackText: "restored"}}
	require.NoError(t, slot.Save(context.Background(), "REST01", cards))

	s := New(context.Background(), "REST01", repo, slot, zap.NewNop())
	t.Cleanup(func() { s.Inbox() <- Shutdown{} })

	v := getView(s)
	require.Equal(t, 1, v.Deck.Len)
	assert.Equal(t, "restored", v.Cards[0].BackText)
}

func TestSaveUnitThenLoadUnknownIDFails(t *testing.T) {
	s, _, _ := newTestSession(t)
	addCard(s, 1)
	addCard(s, 2)
	addCard(s, 3)

	out := make(chan Snapshot, 16)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}

	send(s, Command{Type: CmdSaveUnit, Name: "Animals"})
	v := getView(s)
	require.NotZero(t, v.Deck.LoadedUnitID)

	send(s, Command{Type: CmdLoadUnit, UnitID: v.Deck.LoadedUnitID + 100})
	after := getView(s)
	assert.Equal(t, 3, after.Deck.Len, "failed load leaves the deck unchanged")
	assert.Equal(t, v.Deck.LoadedUnitID, after.Deck.LoadedUnitID)
}

func TestLoadUnitReplacesDeck(t *testing.T) {
	s, repo, _ := newTestSession(t)

	unitCards := []deck.Card{
		{FrontImage: imageRef(10), BackText: "a"},
		{FrontImage: imageRef(11), BackText: "b"},
	}
	id, err := repo.SaveUnit(context.Background(), "Unit", unitCards)
	require.NoError(t, err)

	addCard(s, 1)
	send(s, Command{Type: CmdLoadUnit, UnitID: id})

	v := getView(s)
	assert.Equal(t, 2, v.Deck.Len)
	assert.Equal(t, id, v.Deck.LoadedUnitID)
	assert.Equal(t, unitCards, v.Cards)
}

func TestStartAndExitGame(t *testing.T) {
	s, _, _ := newTestSession(t)
	addCard(s, 1)
	addCard(s, 2)
	addCard(s, 3)

	send(s, Command{Type: CmdStartGame, Game: games.KindQuiz})
	v := getView(s)
	assert.Equal(t, games.KindQuiz, v.GameKind)
	assert.Equal(t, games.PhaseRoundActive, v.GamePhase)

	send(s, Command{Type: CmdExitGame})
	v = getView(s)
	assert.Equal(t, games.Kind(""), v.GameKind, "exit discards the game session entirely")
	assert.Equal(t, 3, v.Deck.Len, "the deck is untouched by the game")
}

func TestGameNeedsEnoughCards(t *testing.T) {
	s, _, _ := newTestSession(t)
	addCard(s, 1)

	out := make(chan Snapshot, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	<-out

	send(s, Command{Type: CmdStartGame, Game: games.KindQuiz})
	snap := <-out
	assert.NotEmpty(t, snap.Notice)
	assert.Nil(t, snap.Game)
}

func TestQuizFlowThroughSession(t *testing.T) {
	s, _, _ := newTestSession(t)
	for i := 1; i <= 5; i++ {
		addCard(s, i)
	}

	send(s, Command{Type: CmdStartGame, Game: games.KindQuiz})

	out := make(chan Snapshot, 16)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	snap := <-out
	require.NotNil(t, snap.Game)
	require.Len(t, snap.Game.Options, 4, "round shows 1 correct + 3 distractors")
	require.NotEmpty(t, snap.Game.PromptImage)

	// Find the correct option by matching the prompt card's back text.
	var targetText string
	for i := 1; i <= 5; i++ {
		if snap.Game.PromptImage == imageRef(i) {
			targetText = fmt.Sprintf("word%d", i)
		}
	}
	require.NotEmpty(t, targetText)
	correct := -1
	for oi, text := range snap.Game.Options {
		if text == targetText {
			correct = oi
		}
	}
	require.GreaterOrEqual(t, correct, 0)

	send(s, Command{Type: CmdChoose, Choice: correct})
	snap = <-out
	require.NotNil(t, snap.Game)
	assert.Equal(t, 1, snap.Game.Score, "correct answer increments score by exactly 1")
	assert.Equal(t, games.PhaseRoundResolved, snap.Game.Phase)
}

func TestBulkImportIsBatched(t *testing.T) {
	s, _, _ := newTestSession(t)

	cards := make([]deck.Card, 40)
	for i := range cards {
		cards[i] = deck.Card{FrontImage: imageRef(100 + i), BackText: fmt.Sprintf("bulk%d", i)}
	}
	// One duplicate sneaks in and must be skipped.
	cards[39] = cards[0]

	out := make(chan Snapshot, 64)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	<-out

	send(s, Command{Type: CmdImportCards, Cards: cards})

	require.Eventually(t, func() bool {
		return getView(s).Deck.Len == 39
	}, 2*time.Second, 10*time.Millisecond)

	// Batches of 16 over 40 cards mean at least 3 incremental snapshots.
	snapshots := 0
	for {
		select {
		case <-out:
			snapshots++
			continue
		default:
		}
		break
	}
	assert.GreaterOrEqual(t, snapshots, 3)
}

func TestEliminationRoundHasCountdown(t *testing.T) {
	s, _, _ := newTestSession(t)
	addCard(s, 1)
	addCard(s, 2)
	addCard(s, 3)

	send(s, Command{Type: CmdStartGame, Game: games.KindElimination})
	out := make(chan Snapshot, 8)
	s.Inbox() <- Join{ClientID: "c1", Outbox: out}
	snap := <-out

	require.NotNil(t, snap.Game)
	assert.Equal(t, games.PhaseRoundActive, snap.Game.Phase)
	assert.Greater(t, snap.Game.RemainingMS, int64(0))

	// Exiting mid-round must cancel the deadline cleanly.
	send(s, Command{Type: CmdExitGame})
	v := getView(s)
	assert.Equal(t, games.PhaseIdle, v.GamePhase)
}
