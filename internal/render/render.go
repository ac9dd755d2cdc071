// Package render projects the card store and view state into the snapshot
// fragment the front end displays. Rendering is pull-only: the session actor
// calls Project after each state-changing command, so a view can never
// observe a half-applied mutation.
package render

import (
	"github.com/flashdeck/backend/internal/deck"
)

// CardView is the visible representation of the current card.
type CardView struct {
	Empty    bool          `json:"empty"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Flipped  bool          `json:"flipped"`
	Image    deck.ImageRef `json:"image,omitempty"`
	Text     string        `json:"text,omitempty"`
	TextSize float64       `json:"text_size,omitempty"`
}

// BoxWidth is the text box width used for fitting back text, in the same
// abstract units the measure function reports.
const BoxWidth = 40.0

// Project builds the view for the store's current card: front image, or back
// text/image when flipped.
func Project(s *deck.Store) CardView {
	card, ok := s.Current()
	if !ok {
		return CardView{Empty: true}
	}
	v := CardView{
		Index:   s.CurrentIndex,
		Total:   s.Len(),
		Flipped: s.Flipped,
	}
	if !s.Flipped {
		v.Image = card.FrontImage
		return v
	}
	v.Text = card.BackText
	v.Image = card.BackImage
	if card.BackText != "" {
		v.TextSize = FitTextSize(card.BackText, BoxWidth, EstimateWidth)
	}
	return v
}
