package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
)

// formatFunc renders one tagged field into its column value.
type formatFunc func(f *sreality.Field) (string, error)

// formatters maps the detail document's type tags to formatting functions.
// Extending the vocabulary means adding an entry here; the orchestrator
// never sees the tags.
var formatters = map[string]formatFunc{
	"string":                        formatPlain,
	"edited":                        formatPlain,
	"count":                         formatPlain,
	"energy_efficiency_rating":      formatPlain,
	"date":                          formatPlain,
	"integer":                       formatPlain,
	"price_czk":                     formatPriceCZK,
	"price_info":                    formatPriceInfo,
	"price":                         formatPrice,
	"price_czk_old":                 formatPrice,
	"area":                          formatWithUnit,
	"length":                        formatWithUnit,
	"boolean":                       formatBoolean,
	"set":                           formatSet,
	"energy_performance":            formatEnergyPerformance,
	"energy_performance_attachment": formatAttachment,
}

// negotiationSuffix is appended to prices marked as open to negotiation.
const negotiationSuffix = " (k jednání)"

// valueString renders a raw field value the way the source site displays it:
// strings as-is, numbers without exponent notation, booleans lower-case.
func valueString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("malformed field value: %w", err)
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func formatPlain(f *sreality.Field) (string, error) {
	return valueString(f.Value)
}

// formatPriceCZK renders "<value> <currency> <unit>, <notes...>", keeping
// the historical trailing separator when there are no notes.
func formatPriceCZK(f *sreality.Field) (string, error) {
	value, err := valueString(f.Value)
	if err != nil {
		return "", err
	}
	joined := strings.Join([]string{value, f.Currency, f.Unit}, " ")
	joined = strings.Join([]string{joined, strings.Join(f.Notes, ", ")}, ", ")
	if f.HasNegotiation() {
		joined += negotiationSuffix
	}
	return joined, nil
}

func formatPriceInfo(f *sreality.Field) (string, error) {
	value, err := valueString(f.Value)
	if err != nil {
		return "", err
	}
	if f.HasNegotiation() {
		value += negotiationSuffix
	}
	return value, nil
}

func formatPrice(f *sreality.Field) (string, error) {
	value, err := valueString(f.Value)
	if err != nil {
		return "", err
	}
	joined := strings.Join([]string{value, f.Currency}, " ")
	if f.Unit != "" {
		joined += " " + f.Unit
	}
	return joined, nil
}

func formatWithUnit(f *sreality.Field) (string, error) {
	value, err := valueString(f.Value)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{value, f.Unit}, " "), nil
}

func formatBoolean(f *sreality.Field) (string, error) {
	value, err := valueString(f.Value)
	if err != nil {
		return "", err
	}
	return strings.ToLower(value), nil
}

// formatSet joins the values of an enumerated multi-value field.
func formatSet(f *sreality.Field) (string, error) {
	var elements []struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(f.Value, &elements); err != nil {
		return "", fmt.Errorf("malformed set value: %w", err)
	}

	parts := make([]string, 0, len(elements))
	for _, element := range elements {
		value, err := valueString(element.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, ", "), nil
}

func formatEnergyPerformance(f *sreality.Field) (string, error) {
	value, err := valueString(f.Value)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{value, f.Unit, f.Unit2}, " "), nil
}

func formatAttachment(f *sreality.Field) (string, error) {
	return f.URL, nil
}
