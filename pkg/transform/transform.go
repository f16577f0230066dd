// Package transform converts one raw catalog-item document into a flat,
// schema-fixed record ready for the tabular store.
package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
	"github.com/nik-panekin/s-reality-scraper/pkg/store"
)

// addedAtLayout is the provenance timestamp format of the store.
const addedAtLayout = "2006-01-02 15:04:05"

// Transformer maps detail documents to store records.
type Transformer struct {
	itemBaseURL string
	logger      logger.Logger

	// now is swappable for tests
	now func() time.Time
}

// New creates a transformer.
func New(cfg *config.Config, log logger.Logger) *Transformer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Transformer{
		itemBaseURL: cfg.Catalog.ItemBaseURL,
		logger:      log,
		now:         time.Now,
	}
}

// Transform builds a record from a detail document. It fails only when the
// document is missing required top-level blocks or a known field cannot be
// rendered; the caller must then treat the item as unsaved, never as a
// partial row. An unrecognized field type is logged and its column stays at
// the default.
func (t *Transformer) Transform(estate *sreality.Estate, hashID int64) (store.Record, error) {
	if err := checkRequiredBlocks(estate); err != nil {
		return nil, err
	}

	rec := store.NewRecord()

	for i := range estate.Items {
		field := &estate.Items[i]

		format, ok := formatters[field.Type]
		if !ok {
			t.logger.WarnWithFields("unknown data type", map[string]interface{}{
				"type":    field.Type,
				"hash_id": hashID,
			})
			continue
		}

		value, err := format(field)
		if err != nil {
			return nil, &errors.Error{
				Kind:    errors.KindTransform,
				Message: "field " + field.Name + ": " + err.Error(),
			}
		}
		rec[field.Name] = value
	}

	link, err := buildLink(estate, hashID, t.itemBaseURL)
	if err != nil {
		return nil, &errors.Error{Kind: errors.KindTransform, Message: err.Error()}
	}
	rec[store.ColLink] = link
	rec[store.ColTitle] = estate.Name.Value

	addr := parseAddress(estate.Locality.Value)
	rec[store.ColStreet] = addr.Street
	rec[store.ColDistrict] = addr.District
	rec[store.ColSubdistrict] = addr.Subdistrict

	if estate.PriceCZK != nil {
		rec[store.ColPrice] = estate.PriceCZK.Value + " Kč"
	} else {
		rec[store.ColPrice] = "Info o ceně u RK"
	}

	rec[store.ColDescription] = strings.ReplaceAll(estate.Text.Value, "\r\n", "<br />")

	rec[store.ColLatitude] = strconv.FormatFloat(estate.Map.Lat, 'f', -1, 64)
	rec[store.ColLongitude] = strconv.FormatFloat(estate.Map.Lon, 'f', -1, 64)

	applyContacts(rec, estate)

	rec[store.ColAddedAt] = t.now().Format(addedAtLayout)
	rec[store.ColRemovedAt] = ""

	return rec, nil
}

// Link derives the canonical item link alone, for callers that need it
// before the full transform (the image bundle directory is named after it).
func (t *Transformer) Link(estate *sreality.Estate, hashID int64) (string, error) {
	if estate.Name == nil || estate.Locality == nil {
		return "", errors.New(errors.KindTransform, "document is missing the title or locality block")
	}
	link, err := buildLink(estate, hashID, t.itemBaseURL)
	if err != nil {
		return "", &errors.Error{Kind: errors.KindTransform, Message: err.Error()}
	}
	return link, nil
}

// checkRequiredBlocks verifies the top-level blocks the transform cannot do
// without. The price block may legitimately be absent (price on request).
func checkRequiredBlocks(estate *sreality.Estate) error {
	var missing string
	switch {
	case estate.Name == nil:
		missing = "name"
	case estate.Locality == nil:
		missing = "locality"
	case estate.Text == nil:
		missing = "text"
	case estate.Map == nil:
		missing = "map"
	default:
		return nil
	}
	return errors.New(errors.KindTransform, "document is missing the %q block", missing)
}

// applyContacts fills the contact columns, preferring the embedded seller
// identity and letting a separate contact block override it.
//
// The second phone is always rewritten, blank when absent, while the first
// is only written when a phone exists. The asymmetry is kept as-is: the
// store format predates this implementation.
func applyContacts(rec store.Record, estate *sreality.Estate) {
	var phones []sreality.Phone

	if estate.Embedded != nil && estate.Embedded.Seller != nil {
		rec[store.ColContactName] = estate.Embedded.Seller.UserName
		phones = estate.Embedded.Seller.Phones
	}
	if estate.Contact != nil {
		rec[store.ColContactName] = estate.Contact.Name
		phones = estate.Contact.Phones
	}

	if len(phones) > 0 {
		rec[store.ColPhone1] = "+" + phones[0].Code + phones[0].Number
	}
	if len(phones) > 1 {
		rec[store.ColPhone2] = "+" + phones[1].Code + phones[1].Number
	} else {
		rec[store.ColPhone2] = ""
	}
}
