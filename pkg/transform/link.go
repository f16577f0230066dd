package transform

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
)

// estateTypeRe extracts the flat layout from an item title.
// Title examples: "Prodej bytu 2+1 83 m²",
//
//	"Prodej bytu 6 pokojů a více 276 m² (Mezonet)"
var estateTypeRe = regexp.MustCompile(`^Prodej bytu (.+)\s\d+\sm²`)

// Address is the structured form of the item's single-line locality.
type Address struct {
	Street      string
	District    string
	Subdistrict string
}

// parseAddress splits a "street, district - subdistrict" locality string.
// Any of the parts may come out empty; the derivation is purely positional.
func parseAddress(locality string) Address {
	var addr Address

	if strings.Contains(locality, ",") {
		addr.Street = strings.Split(locality, ",")[0]
	}
	if strings.Contains(locality, "-") {
		addr.Subdistrict = strings.Split(locality, "-")[1]
	}
	addr.District = strings.Split(locality[len(addr.Street):], "-")[0]
	addr.District = strings.ReplaceAll(addr.District, ",", " ")

	addr.Street = strings.TrimSpace(addr.Street)
	addr.District = strings.TrimSpace(addr.District)
	addr.Subdistrict = strings.TrimSpace(addr.Subdistrict)

	return addr
}

// diacriticsRemover strips combining marks after canonical decomposition.
var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// removeDiacritics converts accented characters to their ASCII base form.
func removeDiacritics(s string) string {
	out, _, err := transform.String(diacriticsRemover, s)
	if err != nil {
		return s
	}
	return out
}

// buildLink derives the canonical item link: estate type from the title,
// address-derived path keywords, then the identifier, all lower-cased with
// diacritics stripped and spaces/dots made path-safe.
// Keyword examples: "praha-liben-nad-rokoskou", "praha-karlin-".
func buildLink(estate *sreality.Estate, hashID int64, itemBaseURL string) (string, error) {
	addr := parseAddress(estate.Locality.Value)

	var keywords string
	if addr.Subdistrict != "" || addr.Street != "" {
		keywords = fmt.Sprintf("praha-%s-%s", addr.Subdistrict, addr.Street)
	} else {
		keywords = fmt.Sprintf("praha-%s-", addr.District)
	}

	match := estateTypeRe.FindStringSubmatch(estate.Name.Value)
	if match == nil {
		return "", fmt.Errorf("can't extract estate type from title %q", estate.Name.Value)
	}
	estateType := match[1]
	if estateType == "6 pokojů a více" {
		estateType = "6-a-vice"
	}

	link := strings.Join([]string{estateType, keywords, fmt.Sprintf("%d", hashID)}, "/")
	link = strings.ToLower(removeDiacritics(link))
	link = strings.ReplaceAll(link, " ", "-")
	link = strings.ReplaceAll(link, ".", "-")

	return itemBaseURL + link, nil
}
