package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
	"github.com/nik-panekin/s-reality-scraper/pkg/store"
)

const testItemBaseURL = "https://www.sreality.cz/detail/prodej/byt/"

func newTestTransformer() (*Transformer, *logger.TestLogger) {
	log := logger.NewTestLogger()
	return &Transformer{
		itemBaseURL: testItemBaseURL,
		logger:      log,
		now: func() time.Time {
			return time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
		},
	}, log
}

func testEstate() *sreality.Estate {
	return &sreality.Estate{
		Name:     &sreality.TextValue{Value: "Prodej bytu 2+1 83 m²"},
		Locality: &sreality.TextValue{Value: "Nad Rokoskou, Praha 8 - Libeň"},
		Text:     &sreality.TextValue{Value: "Světlý byt.\r\nPo rekonstrukci."},
		PriceCZK: &sreality.TextValue{Value: "5 990 000"},
		Map:      &sreality.GeoPoint{Lat: 50.116, Lon: 14.462},
		Items: []sreality.Field{
			{Name: "Stavba", Type: "string", Value: json.RawMessage(`"Cihlová"`)},
			{Name: "Užitná plocha", Type: "area", Value: json.RawMessage(`83`), Unit: "m²"},
		},
		Embedded: &sreality.EstateEmbedded{
			Seller: &sreality.Seller{
				UserName: "Jan Novák",
				Phones:   []sreality.Phone{{Code: "420", Number: "777111222"}},
			},
		},
	}
}

func TestTransform(t *testing.T) {
	tr, _ := newTestTransformer()

	rec, err := tr.Transform(testEstate(), 12345)
	require.NoError(t, err)

	assert.Equal(t, "https://www.sreality.cz/detail/prodej/byt/2+1/praha-liben-nad-rokoskou/12345", rec[store.ColLink])
	assert.Equal(t, "Prodej bytu 2+1 83 m²", rec[store.ColTitle])
	assert.Equal(t, "Nad Rokoskou", rec[store.ColStreet])
	assert.Equal(t, "Praha 8", rec[store.ColDistrict])
	assert.Equal(t, "Libeň", rec[store.ColSubdistrict])
	assert.Equal(t, "5 990 000 Kč", rec[store.ColPrice])
	assert.Equal(t, "Světlý byt.<br />Po rekonstrukci.", rec[store.ColDescription])
	assert.Equal(t, "50.116", rec[store.ColLatitude])
	assert.Equal(t, "14.462", rec[store.ColLongitude])
	assert.Equal(t, "Jan Novák", rec[store.ColContactName])
	assert.Equal(t, "+420777111222", rec[store.ColPhone1])
	assert.Equal(t, "", rec[store.ColPhone2])
	assert.Equal(t, "2024-03-15 12:30:00", rec[store.ColAddedAt])
	assert.Equal(t, "", rec[store.ColRemovedAt])

	assert.Equal(t, "Cihlová", rec["Stavba"])
	assert.Equal(t, "83 m²", rec["Užitná plocha"])
}

func TestTransformLinkRoundTrip(t *testing.T) {
	tr, _ := newTestTransformer()

	rec, err := tr.Transform(testEstate(), 987654)
	require.NoError(t, err)

	hashID, err := rec.HashID()
	require.NoError(t, err)
	assert.Equal(t, int64(987654), hashID)
}

func TestTransformMissingBlocks(t *testing.T) {
	tr, _ := newTestTransformer()

	t.Run("missing map", func(t *testing.T) {
		estate := testEstate()
		estate.Map = nil

		_, err := tr.Transform(estate, 1)
		require.Error(t, err)
		var terr *errors.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, errors.KindTransform, terr.Kind)
	})

	t.Run("missing price is not fatal", func(t *testing.T) {
		estate := testEstate()
		estate.PriceCZK = nil

		rec, err := tr.Transform(estate, 1)
		require.NoError(t, err)
		assert.Equal(t, "Info o ceně u RK", rec[store.ColPrice])
	})
}

func TestTransformUnknownFieldType(t *testing.T) {
	tr, log := newTestTransformer()

	estate := testEstate()
	estate.Items = append(estate.Items, sreality.Field{
		Name:  "Novinka",
		Type:  "hologram",
		Value: json.RawMessage(`"x"`),
	})

	rec, err := tr.Transform(estate, 1)
	require.NoError(t, err)
	assert.Equal(t, "", rec["Novinka"])
	assert.True(t, log.HasMessage("unknown data type"))
}

func TestTransformContacts(t *testing.T) {
	t.Run("contact block overrides seller", func(t *testing.T) {
		tr, _ := newTestTransformer()
		estate := testEstate()
		estate.Contact = &sreality.Contact{
			Name: "Realitní kancelář",
			Phones: []sreality.Phone{
				{Code: "420", Number: "111222333"},
				{Code: "420", Number: "444555666"},
			},
		}

		rec, err := tr.Transform(estate, 1)
		require.NoError(t, err)
		assert.Equal(t, "Realitní kancelář", rec[store.ColContactName])
		assert.Equal(t, "+420111222333", rec[store.ColPhone1])
		assert.Equal(t, "+420444555666", rec[store.ColPhone2])
	})

	t.Run("no phones", func(t *testing.T) {
		tr, _ := newTestTransformer()
		estate := testEstate()
		estate.Embedded.Seller.Phones = nil

		rec, err := tr.Transform(estate, 1)
		require.NoError(t, err)
		assert.Equal(t, "", rec[store.ColPhone1])
		assert.Equal(t, "", rec[store.ColPhone2])
	})
}

func TestTransformerLink(t *testing.T) {
	tr, _ := newTestTransformer()

	t.Run("six rooms and more", func(t *testing.T) {
		estate := testEstate()
		estate.Name.Value = "Prodej bytu 6 pokojů a více 276 m² (Mezonet)"

		link, err := tr.Link(estate, 42)
		require.NoError(t, err)
		assert.Equal(t, testItemBaseURL+"6-a-vice/praha-liben-nad-rokoskou/42", link)
	})

	t.Run("district only", func(t *testing.T) {
		estate := testEstate()
		estate.Locality.Value = "Praha 8"

		link, err := tr.Link(estate, 42)
		require.NoError(t, err)
		assert.Equal(t, testItemBaseURL+"2+1/praha-praha-8-/42", link)
	})

	t.Run("unparsable title", func(t *testing.T) {
		estate := testEstate()
		estate.Name.Value = "Pronájem kanceláře 120 m²"

		_, err := tr.Link(estate, 42)
		require.Error(t, err)
	})

	t.Run("missing locality", func(t *testing.T) {
		estate := testEstate()
		estate.Locality = nil

		_, err := tr.Link(estate, 42)
		require.Error(t, err)
	})
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name     string
		locality string
		want     Address
	}{
		{
			name:     "street, district and subdistrict",
			locality: "Nad Rokoskou, Praha 8 - Libeň",
			want:     Address{Street: "Nad Rokoskou", District: "Praha 8", Subdistrict: "Libeň"},
		},
		{
			name:     "district only",
			locality: "Praha 4",
			want:     Address{District: "Praha 4"},
		},
		{
			name:     "district and subdistrict",
			locality: "Praha 5 - Smíchov",
			want:     Address{District: "Praha 5", Subdistrict: "Smíchov"},
		},
		{
			name:     "street and district",
			locality: "Vodičkova, Praha 1",
			want:     Address{Street: "Vodičkova", District: "Praha 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAddress(tt.locality))
		})
	}
}

func TestRemoveDiacritics(t *testing.T) {
	assert.Equal(t, "Liben", removeDiacritics("Libeň"))
	assert.Equal(t, "Prikopy", removeDiacritics("Příkopy"))
	assert.Equal(t, "zlutoucky kun", removeDiacritics("žluťoučký kůň"))
	assert.Equal(t, "plain", removeDiacritics("plain"))
}

func TestFieldFormatters(t *testing.T) {
	tests := []struct {
		name  string
		field sreality.Field
		want  string
	}{
		{
			name:  "string",
			field: sreality.Field{Type: "string", Value: json.RawMessage(`"Osobní"`)},
			want:  "Osobní",
		},
		{
			name:  "count keeps plain rendering",
			field: sreality.Field{Type: "count", Value: json.RawMessage(`3`)},
			want:  "3",
		},
		{
			name: "price_czk without notes keeps trailing separator",
			field: sreality.Field{
				Type:     "price_czk",
				Value:    json.RawMessage(`5990000`),
				Currency: "Kč",
				Unit:     "za nemovitost",
			},
			want: "5990000 Kč za nemovitost, ",
		},
		{
			name: "price_czk with notes",
			field: sreality.Field{
				Type:     "price_czk",
				Value:    json.RawMessage(`5990000`),
				Currency: "Kč",
				Unit:     "za nemovitost",
				Notes:    []string{"včetně provize", "včetně právního servisu"},
			},
			want: "5990000 Kč za nemovitost, včetně provize, včetně právního servisu",
		},
		{
			name: "price_czk negotiable",
			field: sreality.Field{
				Type:        "price_czk",
				Value:       json.RawMessage(`5990000`),
				Currency:    "Kč",
				Unit:        "za nemovitost",
				Negotiation: json.RawMessage(`true`),
			},
			want: "5990000 Kč za nemovitost,  (k jednání)",
		},
		{
			name: "price without unit",
			field: sreality.Field{
				Type:     "price",
				Value:    json.RawMessage(`120`),
				Currency: "Kč",
			},
			want: "120 Kč",
		},
		{
			name: "price with unit",
			field: sreality.Field{
				Type:     "price",
				Value:    json.RawMessage(`120`),
				Currency: "Kč",
				Unit:     "za m²",
			},
			want: "120 Kč za m²",
		},
		{
			name:  "area",
			field: sreality.Field{Type: "area", Value: json.RawMessage(`83`), Unit: "m²"},
			want:  "83 m²",
		},
		{
			name:  "boolean",
			field: sreality.Field{Type: "boolean", Value: json.RawMessage(`true`)},
			want:  "true",
		},
		{
			name: "set",
			field: sreality.Field{
				Type:  "set",
				Value: json.RawMessage(`[{"value": "Sklep"}, {"value": "Balkón"}]`),
			},
			want: "Sklep, Balkón",
		},
		{
			name: "energy_performance",
			field: sreality.Field{
				Type:  "energy_performance",
				Value: json.RawMessage(`120`),
				Unit:  "kWh",
				Unit2: "za rok",
			},
			want: "120 kWh za rok",
		},
		{
			name:  "energy_performance_attachment",
			field: sreality.Field{Type: "energy_performance_attachment", URL: "https://example.com/penb.pdf"},
			want:  "https://example.com/penb.pdf",
		},
		{
			name:  "null value",
			field: sreality.Field{Type: "string", Value: json.RawMessage(`null`)},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ok := formatters[tt.field.Type]
			require.True(t, ok, "no formatter for type %q", tt.field.Type)

			got, err := format(&tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSetMalformed(t *testing.T) {
	field := sreality.Field{Type: "set", Value: json.RawMessage(`"not a list"`)}
	_, err := formatSet(&field)
	require.Error(t, err)
}
