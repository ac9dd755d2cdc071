package deck

import (
	"errors"
	"math/rand"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrDuplicateImage = errors.New("duplicate front image")
var ErrIndexOutOfRange = errors.New("card index out of range")
var ErrMissingFrontImage = errors.New("front image required")

// ClearAllWindow is how long a first ClearAll call stays armed. A second
// call inside the window empties the store; outside it, the window re-arms.
const ClearAllWindow = 3 * time.Second

// fingerprintCacheSize bounds the payload->fingerprint memo. Repeated
// candidate checks (paste retries, bulk import) skip rehashing large payloads.
const fingerprintCacheSize = 256

// fingerprintCachePayloadLimit keeps oversized payloads out of the memo;
// the cache key is the payload itself, so caching them would pin up to
// fingerprintCacheSize of them in memory.
const fingerprintCachePayloadLimit = 256 << 10

// Store is the ordered card list plus the view state that addresses it.
// It is not safe for concurrent use; the session actor owns it.
type Store struct {
	cards        []Card
	fingerprints map[string]struct{}
	fpCache      *lru.Cache[ImageRef, string]

	CurrentIndex int
	Flipped      bool

	// LoadedUnitID is a weak back-reference to the unit this deck was
	// loaded from. Zero means none.
	LoadedUnitID int64

	clearArmedAt time.Time
	now          func() time.Time
}

func NewStore() *Store {
	cache, _ := lru.New[ImageRef, string](fingerprintCacheSize)
	return &Store{
		fingerprints: make(map[string]struct{}),
		fpCache:      cache,
		now:          time.Now,
	}
}

func (s *Store) Len() int { return len(s.cards) }

// Cards returns a copy of the card list. Games and persistence work on
// snapshots so they can never observe a partial mutation.
func (s *Store) Cards() []Card {
	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out
}

func (s *Store) Card(i int) (Card, error) {
	if i < 0 || i >= len(s.cards) {
		return Card{}, ErrIndexOutOfRange
	}
	return s.cards[i], nil
}

// Current returns the card at CurrentIndex, or false on an empty store.
func (s *Store) Current() (Card, bool) {
	if len(s.cards) == 0 {
		return Card{}, false
	}
	return s.cards[s.CurrentIndex], true
}

func (s *Store) fingerprint(payload ImageRef) string {
	if len(payload) > fingerprintCachePayloadLimit {
		return Fingerprint(payload)
	}
	if fp, ok := s.fpCache.Get(payload); ok {
		return fp
	}
	fp := Fingerprint(payload)
	s.fpCache.Add(payload, fp)
	return fp
}

// IsDuplicate reports whether a card with a byte-identical front image is
// already in the store. Back images are deliberately not checked; they may
// legitimately repeat across cards.
func (s *Store) IsDuplicate(front ImageRef) bool {
	_, ok := s.fingerprints[s.fingerprint(front)]
	return ok
}

// AddCard appends a card. The front image is mandatory and must not be a
// duplicate of an existing card's front image.
func (s *Store) AddCard(front ImageRef, backText string, back ImageRef) error {
	if front == "" {
		return ErrMissingFrontImage
	}
	fp := s.fingerprint(front)
	if _, ok := s.fingerprints[fp]; ok {
		return ErrDuplicateImage
	}
	s.cards = append(s.cards, Card{FrontImage: front, BackText: backText, BackImage: back})
	s.fingerprints[fp] = struct{}{}
	s.disarmClear()
	return nil
}

// DeleteCard removes the card at i and clamps CurrentIndex into the new
// bounds (0 on an empty store).
func (s *Store) DeleteCard(i int) error {
	if i < 0 || i >= len(s.cards) {
		return ErrIndexOutOfRange
	}
	front := s.cards[i].FrontImage
	delete(s.fingerprints, s.fingerprint(front))
	s.fpCache.Remove(front)
	s.cards = append(s.cards[:i], s.cards[i+1:]...)
	if s.CurrentIndex >= len(s.cards) {
		s.CurrentIndex = max(0, len(s.cards)-1)
	}
	s.Flipped = false
	s.disarmClear()
	return nil
}

// ClearAll requires a confirming second call within ClearAllWindow.
// It reports whether the store was actually emptied; a first (or late)
// call only arms the window.
func (s *Store) ClearAll() bool {
	now := s.now()
	if !s.clearArmedAt.IsZero() && now.Sub(s.clearArmedAt) <= ClearAllWindow {
		s.cards = nil
		s.fingerprints = make(map[string]struct{})
		s.fpCache.Purge()
		s.CurrentIndex = 0
		s.Flipped = false
		s.LoadedUnitID = 0
		s.clearArmedAt = time.Time{}
		return true
	}
	s.clearArmedAt = now
	return false
}

// ClearArmed reports whether a ClearAll confirmation window is open.
func (s *Store) ClearArmed() bool {
	return !s.clearArmedAt.IsZero() && s.now().Sub(s.clearArmedAt) <= ClearAllWindow
}

func (s *Store) disarmClear() { s.clearArmedAt = time.Time{} }

// Shuffle reorders the deck in place with a Fisher-Yates pass: uniform over
// permutations and O(n) swaps. Positional identity shifts, so CurrentIndex
// resets to 0.
func (s *Store) Shuffle(rng *rand.Rand) {
	for i := len(s.cards) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
	s.CurrentIndex = 0
	s.Flipped = false
	s.disarmClear()
}

// Navigate moves CurrentIndex by delta, wrapping around the deck, and
// unflips the card.
func (s *Store) Navigate(delta int) {
	if len(s.cards) == 0 {
		return
	}
	n := len(s.cards)
	s.CurrentIndex = ((s.CurrentIndex+delta)%n + n) % n
	s.Flipped = false
}

func (s *Store) SetIndex(i int) error {
	if i < 0 || i >= len(s.cards) {
		return ErrIndexOutOfRange
	}
	s.CurrentIndex = i
	s.Flipped = false
	return nil
}

func (s *Store) Flip() { s.Flipped = !s.Flipped }

// ReplaceAll swaps in a restored or loaded card list and rebuilds the
// fingerprint set from it.
func (s *Store) ReplaceAll(cards []Card) {
	s.cards = make([]Card, len(cards))
	copy(s.cards, cards)
	s.fingerprints = make(map[string]struct{}, len(cards))
	for _, c := range s.cards {
		s.fingerprints[s.fingerprint(c.FrontImage)] = struct{}{}
	}
	s.CurrentIndex = 0
	s.Flipped = false
	s.disarmClear()
}
