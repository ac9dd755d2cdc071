package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flashdeck/backend/internal/deck"
	"github.com/flashdeck/backend/internal/hub"
	"github.com/flashdeck/backend/internal/session"
	"github.com/flashdeck/backend/internal/store"
)

func newTestAPI(t *testing.T) (http.Handler, *hub.Hub, *store.UnitRepo) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop()
	repo := store.NewUnitRepo(db, log)
	h := hub.NewHub(context.Background(), repo, store.NewSessionSlot(db, 0, log), log)
	t.Cleanup(func() { h.Inbox() <- hub.ShutdownHub{} })
	return SetupRoutes(h, repo, log), h, repo
}

func createTestSession(t *testing.T, api http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Code, 6)
	return body.Code
}

func sessionByCode(t *testing.T, h *hub.Hub, code string) *session.Session {
	t.Helper()
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
	sess := <-reply
	require.NotNil(t, sess)
	return sess
}

func sessionView(sess *session.Session) session.View {
	reply := make(chan session.View, 1)
	sess.Inbox() <- session.GetState{Reply: reply}
	return <-reply
}

func TestSaveUnitPersistsSessionDeck(t *testing.T) {
	api, h, repo := newTestAPI(t)
	code := createTestSession(t, api)
	sess := sessionByCode(t, h, code)

	for i := 0; i < 2; i++ {
		sess.Inbox() <- session.FromClient{Cmd: session.Command{
			Type:       session.CmdAddCard,
			FrontImage: deck.ImageRef(fmt.Sprintf("data:image/png;base64,api-%d", i)),
			BackText:   fmt.Sprintf("word%d", i),
		}}
	}
	require.Equal(t, 2, sessionView(sess).Deck.Len)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/units?code="+code, bytes.NewBufferString(`{"name":"Animals"}`))
	api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		units, err := repo.ListUnits(context.Background())
		return err == nil && len(units) == 1 && units[0].Name == "Animals" && units[0].CardCount == 2
	}, 2*time.Second, 10*time.Millisecond, "the accepted save must reach the unit store")
}

func TestSaveUnitRequiresName(t *testing.T) {
	api, _, _ := newTestAPI(t)
	code := createTestSession(t, api)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/units?code="+code, bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveUnitUnknownSession(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/units?code=NOPE00", bytes.NewBufferString(`{"name":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadUnitReplacesSessionDeck(t *testing.T) {
	api, h, repo := newTestAPI(t)

	cards := []deck.Card{
		{FrontImage: "data:image/png;base64,load-a", BackText: "a"},
		{FrontImage: "data:image/png;base64,load-b", BackText: "b"},
		{FrontImage: "data:image/png;base64,load-c", BackText: "c"},
	}
	id, err := repo.SaveUnit(context.Background(), "Unit", cards)
	require.NoError(t, err)

	code := createTestSession(t, api)
	sess := sessionByCode(t, h, code)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/units/%d/load?code=%s", id, code), nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		v := sessionView(sess)
		return v.Deck.Len == 3 && v.Deck.LoadedUnitID == id
	}, 2*time.Second, 10*time.Millisecond)
}
