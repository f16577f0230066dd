package sreality

import (
	"encoding/json"

	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
)

// ListingResponse is one page of the paginated category search.
type ListingResponse struct {
	ResultSize int `json:"result_size"`
	Embedded   struct {
		Estates []EstateSummary `json:"estates"`
	} `json:"_embedded"`
}

// EstateSummary is one item of a listing page.
type EstateSummary struct {
	HashID int64  `json:"hash_id"`
	Name   string `json:"name"`
}

// TextValue is the common {"value": "..."} wrapper of the detail document.
type TextValue struct {
	Value string `json:"value"`
}

// GeoPoint holds the item geocoordinates.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Field is one tagged entry of the detail document's "items" table. Value
// stays raw: its shape depends on Type and is decoded by the transformer's
// per-type formatting table.
type Field struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value"`
	Currency    string          `json:"currency"`
	Unit        string          `json:"unit"`
	Unit2       string          `json:"unit2"`
	Notes       []string        `json:"notes"`
	Negotiation json.RawMessage `json:"negotiation"`
	URL         string          `json:"url"`
}

// HasNegotiation reports whether the negotiation flag is present (explicit
// null counts as absent, matching the source vocabulary).
func (f *Field) HasNegotiation() bool {
	return len(f.Negotiation) > 0 && string(f.Negotiation) != "null"
}

// Phone is a single contact phone number.
type Phone struct {
	Code   string `json:"code"`
	Number string `json:"number"`
}

// Seller is the embedded seller identity.
type Seller struct {
	UserName string  `json:"user_name"`
	Phones   []Phone `json:"phones"`
}

// Contact is the separate contact block; when present it takes precedence
// over the embedded seller.
type Contact struct {
	Name   string  `json:"name"`
	Phones []Phone `json:"phones"`
}

// Image is one entry of the embedded image list.
type Image struct {
	Links struct {
		Self struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"_links"`
}

// EstateEmbedded holds the "_embedded" block of a detail document.
type EstateEmbedded struct {
	Seller *Seller `json:"seller"`
	Images []Image `json:"images"`
}

// Estate is the full detail document for one catalog item. Required blocks
// are pointers so the transformer can tell "absent" from "empty".
type Estate struct {
	Name     *TextValue      `json:"name"`
	Locality *TextValue      `json:"locality"`
	Text     *TextValue      `json:"text"`
	PriceCZK *TextValue      `json:"price_czk"`
	Map      *GeoPoint       `json:"map"`
	Items    []Field         `json:"items"`
	Embedded *EstateEmbedded `json:"_embedded"`
	Contact  *Contact        `json:"contact"`
}

// ParseEstate decodes a raw detail payload. The raw bytes are what the
// orchestrator persists; this function only interprets them.
func ParseEstate(raw []byte) (*Estate, error) {
	var estate Estate
	if err := json.Unmarshal(raw, &estate); err != nil {
		return nil, &errors.Error{
			Kind:    errors.KindDecode,
			Message: "failed to parse estate document: " + err.Error(),
		}
	}
	return &estate, nil
}
