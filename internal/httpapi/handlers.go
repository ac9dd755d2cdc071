package httpapi

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/archive"
	"github.com/flashdeck/backend/internal/hub"
	"github.com/flashdeck/backend/internal/session"
	"github.com/flashdeck/backend/internal/store"
)

// maxImportBytes bounds an uploaded archive body.
const maxImportBytes = 64 << 20

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *session.Session, 1)
			h.Inbox() <- hub.GetSession{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Debug("session code collision, regenerating", zap.String("code", c))
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{Code: code, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

// ExportDeck streams the session's current deck as a zip archive.
func ExportDeck(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(h, w, r)
		if !ok {
			return
		}

		reply := make(chan session.View, 1)
		sess.Inbox() <- session.GetState{Reply: reply}
		view := <-reply

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="deck.zip"`)
		if err := archive.Export(w, view.Cards); err != nil {
			log.Error("deck export failed", zap.Error(err))
		}
	}
}

// ImportDeck accepts a zip archive body and feeds its cards into the
// session as a batched bulk import.
func ImportDeck(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(h, w, r)
		if !ok {
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
		if err != nil {
			http.Error(w, "failed to read archive", http.StatusBadRequest)
			return
		}
		cards, err := archive.Import(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			log.Warn("deck import rejected", zap.Error(err))
			http.Error(w, "invalid archive", http.StatusBadRequest)
			return
		}

		sess.Inbox() <- session.FromClient{Cmd: session.Command{Type: session.CmdImportCards, Cards: cards}}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(struct {
			Cards int `json:"cards"`
		}{Cards: len(cards)})
	}
}

// SaveUnit persists the session's current deck as a named unit. The session
// is addressed by the code query parameter; the save itself runs on the
// session actor, so the handler only acknowledges acceptance.
func SaveUnit(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(h, w, r)
		if !ok {
			return
		}

		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "unit name required", http.StatusBadRequest)
			return
		}

		sess.Inbox() <- session.FromClient{Cmd: session.Command{Type: session.CmdSaveUnit, Name: body.Name}}
		w.WriteHeader(http.StatusAccepted)
	}
}

// LoadUnitIntoSession replaces the session's deck with a stored unit.
func LoadUnitIntoSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(h, w, r)
		if !ok {
			return
		}
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad unit id", http.StatusBadRequest)
			return
		}

		sess.Inbox() <- session.FromClient{Cmd: session.Command{Type: session.CmdLoadUnit, UnitID: id}}
		w.WriteHeader(http.StatusAccepted)
	}
}

func ListUnits(repo *store.UnitRepo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		units, err := repo.ListUnits(r.Context())
		if err != nil {
			log.Error("list units failed", zap.Error(err))
			http.Error(w, "failed to list units", http.StatusInternalServerError)
			return
		}
		if units == nil {
			units = []store.UnitSummary{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(units)
	}
}

func GetUnit(repo *store.UnitRepo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad unit id", http.StatusBadRequest)
			return
		}
		unit, err := repo.LoadUnit(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unit not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("load unit failed", zap.Int64("id", id), zap.Error(err))
			http.Error(w, "failed to load unit", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(unit)
	}
}

// DeleteUnit is idempotent: deleting an absent unit still returns 204.
func DeleteUnit(repo *store.UnitRepo, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad unit id", http.StatusBadRequest)
			return
		}
		if err := repo.DeleteUnit(r.Context(), id); err != nil {
			log.Error("delete unit failed", zap.Int64("id", id), zap.Error(err))
			http.Error(w, "failed to delete unit", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// lookupSession resolves the session from the code path parameter, falling
// back to the code query parameter for routes that address the session
// indirectly (the /units endpoints).
func lookupSession(h *hub.Hub, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	code := chi.URLParam(r, "code")
	if code == "" {
		code = r.URL.Query().Get("code")
	}
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return nil, false
	}
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
	sess := <-reply
	if sess == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}
