// Package ws bridges a browser WebSocket to a session actor: a reader loop
// feeds decoded commands into the inbox, a writer goroutine streams snapshot
// broadcasts back out.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/games"
	"github.com/flashdeck/backend/internal/hub"
	"github.com/flashdeck/backend/internal/session"
	"github.com/flashdeck/backend/pkg/types"
)

func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{Code: code, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := uuid.NewString()

		sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { sess.Inbox() <- session.Leave{ClientID: clientID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "StateSnapshot", Snapshot: &snap}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			cmd, ok := toSessionCommand(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			sess.Inbox() <- session.FromClient{Cmd: cmd}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func toSessionCommand(m types.ClientMessage) (session.Command, bool) {
	switch m.Type {
	case "AddCard":
		return session.Command{
			Type:       session.CmdAddCard,
			FrontImage: deck.ImageRef(m.FrontImage),
			BackText:   m.BackText,
			BackImage:  deck.ImageRef(m.BackImage),
		}, true
	case "DeleteCard":
		return session.Command{Type: session.CmdDeleteCard, Index: m.Index}, true
	case "ClearAll":
		return session.Command{Type: session.CmdClearAll}, true
	case "Shuffle":
		return session.Command{Type: session.CmdShuffle}, true
	case "Navigate":
		return session.Command{Type: session.CmdNavigate, Delta: m.Delta}, true
	case "SetIndex":
		return session.Command{Type: session.CmdSetIndex, Index: m.Index}, true
	case "Flip":
		return session.Command{Type: session.CmdFlip}, true
	case "SaveUnit":
		return session.Command{Type: session.CmdSaveUnit, Name: m.Name}, true
	case "LoadUnit":
		return session.Command{Type: session.CmdLoadUnit, UnitID: m.UnitID}, true
	case "DeleteUnit":
		return session.Command{Type: session.CmdDeleteUnit, UnitID: m.UnitID}, true
	case "StartGame":
		kind, ok := parseKind(m.Game)
		if !ok {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdStartGame, Game: kind}, true
	case "NextRound":
		return session.Command{Type: session.CmdNextRound}, true
	case "Choose":
		return session.Command{Type: session.CmdChoose, Choice: m.Choice}, true
	case "SubmitAnswer":
		return session.Command{Type: session.CmdSubmitAnswer, Answer: m.Answer}, true
	case "ExitGame":
		return session.Command{Type: session.CmdExitGame}, true
	case "ImportCards":
		cards := make([]deck.Card, 0, len(m.Cards))
		for _, c := range m.Cards {
			cards = append(cards, deck.Card{
				FrontImage: deck.ImageRef(c.FrontImage),
				BackText:   c.BackText,
				BackImage:  deck.ImageRef(c.BackImage),
			})
		}
		return session.Command{Type: session.CmdImportCards, Cards: cards}, true
	default:
		return session.Command{}, false
	}
}

func parseKind(g string) (games.Kind, bool) {
	switch games.Kind(g) {
	case games.KindQuiz, games.KindElimination, games.KindUnscramble:
		return games.Kind(g), true
	default:
		return "", false
	}
}
