package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
)

// Column names referenced from code. The remaining columns in Columns are
// filled straight from the detail document's tagged field table and are only
// ever addressed by the names the API reports.
const (
	ColLink        = "Ссылка"
	ColTitle       = "Заголовок"
	ColStreet      = "Улица"
	ColDistrict    = "Район"
	ColSubdistrict = "Часть района"
	ColPrice       = "Цена"
	ColDescription = "Описание"
	ColLatitude    = "Геопозиция широта"
	ColLongitude   = "Геопозиция долгота"
	ColContactName = "Контакт Имя"
	ColPhone1      = "Контакт телефон 1"
	ColPhone2      = "Контакт телефон 2"
	ColAddedAt     = "Добавлено"
	ColRemovedAt   = "Удалено"
)

// RemovedMark is the value the reconciler writes into the removal column.
const RemovedMark = "removed"

// Columns is the fixed column order of the tabular store. Header and every
// row follow this order exactly; changing it breaks existing files.
var Columns = []string{
	ColLink,
	ColTitle,
	ColStreet,
	ColDistrict,
	ColSubdistrict,
	ColPrice,
	ColDescription,

	// Table section begin
	"Celková cena",
	"ID zakázky",
	"Aktualizace",
	"Stavba",
	"Stav objektu",
	"Vlastnictví",
	"Podlaží",
	"Užitná plocha",
	"Balkón",
	"Sklep",
	"Parkování",
	"Garáž",
	"Energetická náročnost budovy",
	"Bezbariérový",
	"Vybavení",
	"Výtah",
	"Plocha podlahová",
	"Poznámka k ceně",
	"Umístění objektu",
	"Elektřina",
	"Doprava",
	"Rok rekonstrukce",
	"Voda",
	"Topení",
	"Odpad",
	"Telekomunikace",
	"Terasa",
	"Cena",
	"Plyn",
	"Rok kolaudace",
	"Komunikace",
	"Ukazatel energetické náročnosti budovy",
	"Datum ukončení výstavby",
	"Datum zahájení prodeje",
	"Typ bytu",
	"Stav",
	"Průkaz energetické náročnosti budovy",
	"Datum nastěhování",
	"ID",
	"Lodžie",
	"Datum prohlídky",
	"Datum prohlídky do",
	"Náklady na bydlení",
	"Anuita",
	"Převod do OV",
	"Plocha zahrady",
	"Výška stropu",
	"Plocha zastavěná",
	"Počet bytů",
	"Provize",
	"Půdní vestavba",
	"Zlevněno",
	"Původní cena",
	"Bazén",
	"Minimální kupní cena",
	// Table section end

	ColLatitude,
	ColLongitude,
	ColContactName,
	ColPhone1,
	ColPhone2,
	ColAddedAt,
	ColRemovedAt,
}

// Record is one catalog item keyed by column name. NewRecord pre-fills every
// column so a record always serializes to a complete row.
type Record map[string]string

// NewRecord creates a record with every column at its empty default.
func NewRecord() Record {
	rec := make(Record, len(Columns))
	for _, col := range Columns {
		rec[col] = ""
	}
	return rec
}

// IsRemoved reports whether the reconciler marked this record stale.
func (r Record) IsRemoved() bool {
	return r[ColRemovedAt] == RemovedMark
}

// HashID derives the item identifier from the record's link column.
func (r Record) HashID() (int64, error) {
	return HashIDFromLink(r[ColLink])
}

// HashIDFromLink parses the item hash_id embedded in a canonical link. The
// identifier is always the last path segment.
func HashIDFromLink(link string) (int64, error) {
	idx := strings.LastIndex(link, "/")
	if idx < 0 || idx == len(link)-1 {
		return 0, errors.New(errors.KindCorruption, "link %q carries no identifier", link)
	}
	hashID, err := strconv.ParseInt(link[idx+1:], 10, 64)
	if err != nil {
		return 0, errors.New(errors.KindCorruption, "link %q carries no identifier: %v", link, err)
	}
	return hashID, nil
}

// HashIDSet builds the in-memory identifier index from loaded records.
// Records with an unparsable link are skipped; the row stays in the store
// but can never match an incoming item.
func HashIDSet(records []Record) map[int64]struct{} {
	set := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		hashID, err := rec.HashID()
		if err != nil {
			continue
		}
		set[hashID] = struct{}{}
	}
	return set
}

// row serializes a record in fixed column order.
func (r Record) row() []string {
	row := make([]string, len(Columns))
	for i, col := range Columns {
		row[i] = r[col]
	}
	return row
}

// recordFromRow builds a record from a CSV row; the row must carry exactly
// one value per column.
func recordFromRow(row []string) (Record, error) {
	if len(row) != len(Columns) {
		return nil, fmt.Errorf("row has %d columns, want %d", len(row), len(Columns))
	}
	rec := make(Record, len(Columns))
	for i, col := range Columns {
		rec[col] = row[i]
	}
	return rec, nil
}
