package session

import (
	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/games"
)

type Msg interface{ isSessionMsg() }

// Join registers a client and immediately sends it the current snapshot.
type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

type Leave struct{ ClientID string }

type Shutdown struct{}

// FromClient carries one decoded client command into the actor.
type FromClient struct {
	Cmd Command
}

// GetState reflects internal state without data races; used by tests and by
// the export handler to snapshot the deck.
type GetState struct {
	Reply chan View
}

// timerExpired is the deadline signal for a timed game round. It carries the
// game id so an expiry that outlives its game is discarded.
type timerExpired struct{ GameID string }

// continueImport resumes a batched bulk import; one batch is processed per
// message so other inbox traffic interleaves between batches.
type continueImport struct{}

// persistDone is the completion signal of an asynchronous session-slot
// write.
type persistDone struct{ Err error }

func (Join) isSessionMsg()           {}
func (Leave) isSessionMsg()          {}
func (Shutdown) isSessionMsg()       {}
func (FromClient) isSessionMsg()     {}
func (GetState) isSessionMsg()       {}
func (timerExpired) isSessionMsg()   {}
func (continueImport) isSessionMsg() {}
func (persistDone) isSessionMsg()    {}

type CommandType string

const (
	CmdAddCard    CommandType = "AddCard"
	CmdDeleteCard CommandType = "DeleteCard"
	CmdClearAll   CommandType = "ClearAll"
	CmdShuffle    CommandType = "Shuffle"
	CmdNavigate   CommandType = "Navigate"
	CmdSetIndex   CommandType = "SetIndex"
	CmdFlip       CommandType = "Flip"

	CmdSaveUnit   CommandType = "SaveUnit"
	CmdLoadUnit   CommandType = "LoadUnit"
	CmdDeleteUnit CommandType = "DeleteUnit"

	CmdStartGame    CommandType = "StartGame"
	CmdNextRound    CommandType = "NextRound"
	CmdChoose       CommandType = "Choose"
	CmdSubmitAnswer CommandType = "SubmitAnswer"
	CmdExitGame     CommandType = "ExitGame"

	CmdImportCards CommandType = "ImportCards"
)

// Command is one user action against the session. Exactly these commands
// trigger a re-render (snapshot broadcast).
type Command struct {
	Type CommandType

	FrontImage deck.ImageRef
	BackText   string
	BackImage  deck.ImageRef

	Index  int
	Delta  int
	Choice int
	Answer string

	Name   string
	UnitID int64

	Game games.Kind

	Cards []deck.Card
}

// View is the GetState reply.
type View struct {
	Version    int
	NumClients int
	Cards      []deck.Card
	Deck       DeckView
	GamePhase  games.Phase
	GameKind   games.Kind
}
