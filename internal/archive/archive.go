// Package archive reads and writes the deck interchange file: a zip holding
// a deck.json manifest plus the bundled image payloads as entries, so decks
// move between installs without blowing up the JSON with inline images.
package archive

import (
	"archive/zip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/flashdeck/backend/internal/deck"
)

const manifestName = "deck.json"

type manifest struct {
	Version int            `json:"version"`
	Cards   []manifestCard `json:"cards"`
}

// manifestCard references image entries by name; images that are not
// data-URIs are carried inline untouched.
type manifestCard struct {
	FrontEntry  string `json:"front_entry,omitempty"`
	FrontMime   string `json:"front_mime,omitempty"`
	FrontInline string `json:"front_inline,omitempty"`
	BackText    string `json:"back_text,omitempty"`
	BackEntry   string `json:"back_entry,omitempty"`
	BackMime    string `json:"back_mime,omitempty"`
	BackInline  string `json:"back_inline,omitempty"`
}

// Export writes the card list as a zip archive. The klauspost deflate
// implementation is registered as the compressor.
func Export(w io.Writer, cards []deck.Card) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	m := manifest{Version: 1, Cards: make([]manifestCard, len(cards))}
	for i, c := range cards {
		mc := &m.Cards[i]
		mc.BackText = c.BackText
		var err error
		mc.FrontEntry, mc.FrontMime, mc.FrontInline, err = writeImage(zw, fmt.Sprintf("images/%04d-front", i), c.FrontImage)
		if err != nil {
			return err
		}
		mc.BackEntry, mc.BackMime, mc.BackInline, err = writeImage(zw, fmt.Sprintf("images/%04d-back", i), c.BackImage)
		if err != nil {
			return err
		}
	}

	mw, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := json.NewEncoder(mw).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return zw.Close()
}

// Import reads an archive produced by Export (or a compatible tool) back
// into a card list, preserving order.
func Import(r io.ReaderAt, size int64) ([]deck.Card, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	entries := make(map[string]*zip.File, len(zr.File))
	var mf *zip.File
	for _, f := range zr.File {
		if f.Name == manifestName {
			mf = f
			continue
		}
		entries[f.Name] = f
	}
	if mf == nil {
		return nil, fmt.Errorf("archive has no %s", manifestName)
	}

	var m manifest
	rc, err := mf.Open()
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	err = json.NewDecoder(rc).Decode(&m)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	cards := make([]deck.Card, 0, len(m.Cards))
	for _, mc := range m.Cards {
		front, err := readImage(entries, mc.FrontEntry, mc.FrontMime, mc.FrontInline)
		if err != nil {
			return nil, err
		}
		back, err := readImage(entries, mc.BackEntry, mc.BackMime, mc.BackInline)
		if err != nil {
			return nil, err
		}
		cards = append(cards, deck.Card{FrontImage: front, BackText: mc.BackText, BackImage: back})
	}
	return cards, nil
}

// writeImage stores one image payload. Data-URIs are decoded into a binary
// entry; anything else (including empty) stays inline in the manifest.
func writeImage(zw *zip.Writer, name string, img deck.ImageRef) (entry, mime, inline string, err error) {
	if img == "" {
		return "", "", "", nil
	}
	mime, raw, ok := decodeDataURI(img)
	if !ok {
		return "", "", string(img), nil
	}
	w, err := zw.Create(name)
	if err != nil {
		return "", "", "", fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := w.Write(raw); err != nil {
		return "", "", "", fmt.Errorf("write entry %s: %w", name, err)
	}
	return name, mime, "", nil
}

func readImage(entries map[string]*zip.File, entry, mime, inline string) (deck.ImageRef, error) {
	if entry == "" {
		return deck.ImageRef(inline), nil
	}
	f, ok := entries[entry]
	if !ok {
		return "", fmt.Errorf("archive entry %s missing", entry)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry %s: %w", entry, err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read entry %s: %w", entry, err)
	}
	return encodeDataURI(mime, raw), nil
}

func decodeDataURI(img deck.ImageRef) (mime string, raw []byte, ok bool) {
	s := string(img)
	if !strings.HasPrefix(s, "data:") {
		return "", nil, false
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", nil, false
	}
	meta := s[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return "", nil, false
	}
	return strings.TrimSuffix(meta, ";base64"), raw, true
}

func encodeDataURI(mime string, raw []byte) deck.ImageRef {
	return deck.ImageRef("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw))
}
