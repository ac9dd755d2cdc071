// Package session implements the actor that owns one browser session's
// application state: the card store, view state, and at most one running
// game. All mutation goes through the inbox and is processed serially, so a
// broadcast snapshot never observes a partially-applied change.
package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/games"
	"github.com/flashdeck/backend/internal/sound"
	"github.com/flashdeck/backend/internal/store"
)

// importBatchSize bounds one unit of bulk-import work so a large import
// never starves the inbox; each batch yields one incremental snapshot.
const importBatchSize = 16

type activeGame struct {
	kind games.Kind
	id   string

	quiz       games.QuizState
	elim       games.EliminationState
	unscramble games.UnscrambleState
}

type Session struct {
	code    string
	inbox   chan Msg
	store   *deck.Store
	repo    *store.UnitRepo
	slot    *store.SessionSlot
	log     *zap.Logger
	rng     *rand.Rand
	now     func() time.Time
	clients map[string]chan Snapshot
	version int

	game  *activeGame
	timer *time.Timer

	// Session-slot writes are asynchronous; dirty/persisting serialize them
	// so a completion signal is always awaited before the next write.
	dirty      bool
	persisting bool

	pendingImport []deck.Card
	imported      int
	skipped       int

	// restoreNotice carries a corrupt-slot warning to the first client.
	restoreNotice string

	ctx    context.Context
	cancel context.CancelFunc
}

// New restores the session's deck from its slot (silently empty when the
// slot is absent; a corrupt slot logs, notifies, and starts empty) and
// starts the actor loop.
func New(parent context.Context, code string, repo *store.UnitRepo, slot *store.SessionSlot, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		code:    code,
		inbox:   make(chan Msg, 64),
		store:   deck.NewStore(),
		repo:    repo,
		slot:    slot,
		log:     log.With(zap.String("session", code)),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(ulid.Now()))),
		now:     time.Now,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	cards, err := slot.Restore(ctx, code)
	switch {
	case errors.Is(err, store.ErrCorruptState):
		s.restoreNotice = noticeFor(err)
	case err != nil:
		s.log.Error("session restore failed", zap.Error(err))
	}
	if len(cards) > 0 {
		s.store.ReplaceAll(cards)
	}

	go s.loop()
	return s
}

// Inbox exposes the actor mailbox to the edge and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot(s.restoreNotice, "")
				s.restoreNotice = ""

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case FromClient:
				s.handleCommand(msg.Cmd)

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					Cards:      s.store.Cards(),
					Deck: DeckView{
						Len:          s.store.Len(),
						CurrentIndex: s.store.CurrentIndex,
						Flipped:      s.store.Flipped,
						LoadedUnitID: s.store.LoadedUnitID,
						ClearArmed:   s.store.ClearArmed(),
					},
					GamePhase: s.gamePhase(),
					GameKind:  s.gameKind(),
				}

			case timerExpired:
				s.handleTimerExpired(msg)

			case continueImport:
				s.importBatch()

			case persistDone:
				s.handlePersistDone(msg)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	s.stopTimer()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Slow or stuck client; drop it.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) handleCommand(cmd Command) {
	var notice, cue string

	switch cmd.Type {
	case CmdAddCard:
		if err := s.store.AddCard(cmd.FrontImage, cmd.BackText, cmd.BackImage); err != nil {
			notice = noticeFor(err)
		} else {
			s.schedulePersist()
		}

	case CmdDeleteCard:
		if err := s.store.DeleteCard(cmd.Index); err != nil {
			notice = noticeFor(err)
		} else {
			s.schedulePersist()
		}

	case CmdClearAll:
		if s.store.ClearAll() {
			notice = "Deck cleared."
			s.schedulePersist()
		} else {
			notice = "Press clear again to empty the deck."
		}

	case CmdShuffle:
		s.store.Shuffle(s.rng)
		cue = sound.Shuffle
		s.schedulePersist()

	case CmdNavigate:
		s.store.Navigate(cmd.Delta)

	case CmdSetIndex:
		if err := s.store.SetIndex(cmd.Index); err != nil {
			notice = noticeFor(err)
		}

	case CmdFlip:
		s.store.Flip()
		cue = sound.Flip

	case CmdSaveUnit:
		id, err := s.repo.SaveUnit(s.ctx, cmd.Name, s.store.Cards())
		if err != nil {
			notice = noticeFor(err)
		} else {
			s.store.LoadedUnitID = id
			notice = "Unit saved."
		}

	case CmdLoadUnit:
		u, err := s.repo.LoadUnit(s.ctx, cmd.UnitID)
		if err != nil {
			notice = noticeFor(err)
		} else {
			s.store.ReplaceAll(u.Cards)
			s.store.LoadedUnitID = u.ID
			s.schedulePersist()
		}

	case CmdDeleteUnit:
		if err := s.repo.DeleteUnit(s.ctx, cmd.UnitID); err != nil {
			notice = noticeFor(err)
		} else if s.store.LoadedUnitID == cmd.UnitID {
			s.store.LoadedUnitID = 0
		}

	case CmdStartGame:
		notice, cue = s.startGame(cmd.Game)

	case CmdNextRound:
		notice, cue = s.applyGame(games.Command{Type: games.CmdStartRound, Now: s.now()})

	case CmdChoose:
		notice, cue = s.applyGame(games.Command{Type: games.CmdChoose, Choice: cmd.Choice, Now: s.now()})

	case CmdSubmitAnswer:
		notice, cue = s.applyGame(games.Command{Type: games.CmdSubmitAnswer, Answer: cmd.Answer, Now: s.now()})

	case CmdExitGame:
		s.teardownGame()

	case CmdImportCards:
		s.pendingImport = cmd.Cards
		s.imported, s.skipped = 0, 0
		s.importBatch()
		return // importBatch broadcasts

	default:
		s.log.Warn("unsupported command", zap.String("type", string(cmd.Type)))
		return
	}

	s.version++
	s.broadcast(s.snapshot(notice, cue))
}

// importBatch processes one bounded slice of a bulk import, emits one
// incremental snapshot, and re-queues itself for the remainder so other
// inbox messages interleave.
func (s *Session) importBatch() {
	n := min(importBatchSize, len(s.pendingImport))
	batch := s.pendingImport[:n]
	s.pendingImport = s.pendingImport[n:]

	for _, c := range batch {
		err := s.store.AddCard(c.FrontImage, c.BackText, c.BackImage)
		switch {
		case err == nil:
			s.imported++
		case errors.Is(err, deck.ErrDuplicateImage), errors.Is(err, deck.ErrMissingFrontImage):
			s.skipped++
		default:
			s.skipped++
			s.log.Warn("import card rejected", zap.Error(err))
		}
	}

	var notice string
	if len(s.pendingImport) > 0 {
		s.enqueue(continueImport{})
	} else {
		notice = importNotice(s.imported, s.skipped)
		s.schedulePersist()
	}
	s.version++
	s.broadcast(s.snapshot(notice, ""))
}

// enqueue delivers an internal message without risking a self-send deadlock
// on a full inbox.
func (s *Session) enqueue(m Msg) {
	select {
	case s.inbox <- m:
	default:
		go func() {
			select {
			case s.inbox <- m:
			case <-s.ctx.Done():
			}
		}()
	}
}

func (s *Session) schedulePersist() {
	s.dirty = true
	s.maybePersist()
}

// maybePersist starts at most one asynchronous slot write. A mutation during
// a write marks the store dirty again and the next write starts only after
// the completion signal, so persisted state is never read before it lands.
func (s *Session) maybePersist() {
	if s.persisting || !s.dirty {
		return
	}
	s.persisting = true
	s.dirty = false
	cards := s.store.Cards()
	go func() {
		err := s.slot.Save(s.ctx, s.code, cards)
		select {
		case s.inbox <- persistDone{Err: err}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) handlePersistDone(msg persistDone) {
	s.persisting = false
	if msg.Err != nil {
		// In-memory state is preserved; durability waits for an explicit
		// user retry (another mutation or save).
		s.log.Warn("session persist failed", zap.Error(msg.Err))
		s.version++
		s.broadcast(s.snapshot(noticeFor(msg.Err), ""))
		return
	}
	s.maybePersist()
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, deck.ErrDuplicateImage):
		return "That image is already in the deck."
	case errors.Is(err, deck.ErrMissingFrontImage):
		return "A card needs a front image."
	case errors.Is(err, deck.ErrIndexOutOfRange):
		return "That card no longer exists."
	case errors.Is(err, store.ErrNotFound):
		return "Unit not found."
	case errors.Is(err, store.ErrStorageQuotaExceeded):
		return "Storage is full; the deck is kept in memory but not saved."
	case errors.Is(err, store.ErrCorruptState):
		return "Saved data was unreadable; starting fresh."
	case errors.Is(err, games.ErrNotEnoughCards):
		return "Add more cards before starting a game."
	case err != nil:
		return "Something went wrong; please try again."
	}
	return ""
}

func importNotice(imported, skipped int) string {
	switch {
	case skipped == 0:
		return "Import finished."
	case imported == 0:
		return "Import finished: nothing new to add."
	default:
		return "Import finished; duplicates were skipped."
	}
}
