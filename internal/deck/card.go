package deck

// ImageRef is an image payload carried as a data-URI string.
// Payloads can be multi-megabyte, so they are compared by fingerprint,
// never byte-by-byte.
type ImageRef string

// Card is one flashcard. Identity is positional: a card is addressed by
// its index in the store and has no stable id.
type Card struct {
	FrontImage ImageRef `json:"front_image"`
	BackText   string   `json:"back_text"`
	BackImage  ImageRef `json:"back_image,omitempty"`
}
