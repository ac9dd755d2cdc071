package types

import "github.com/flashdeck/backend/internal/session"

// CardPayload is a card on the wire; images travel as data-URI strings.
type CardPayload struct {
	FrontImage string `json:"front_image"`
	BackText   string `json:"back_text"`
	BackImage  string `json:"back_image,omitempty"`
}

type ClientMessage struct {
	Type string `json:"type"`

	FrontImage string `json:"front_image,omitempty"`
	BackText   string `json:"back_text,omitempty"`
	BackImage  string `json:"back_image,omitempty"`

	Index  int    `json:"index,omitempty"`
	Delta  int    `json:"delta,omitempty"`
	Choice int    `json:"choice,omitempty"`
	Answer string `json:"answer,omitempty"`

	Name   string `json:"name,omitempty"`
	UnitID int64  `json:"unit_id,omitempty"`

	Game string `json:"game,omitempty"`

	Cards []CardPayload `json:"cards,omitempty"`
}

type ServerMessage struct {
	Type     string            `json:"type"` // "StateSnapshot" | "Error"
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}
