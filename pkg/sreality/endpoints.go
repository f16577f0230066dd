package sreality

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Search constants for the category listing endpoint: flats for sale in
// Prague, auctions excluded.
const (
	CategoryMain     = 1
	CategoryType     = 1
	LocalityRegionID = 10
	SortOrder        = 0

	// EstateAgeToday limits the search to items submitted today.
	EstateAgeToday = 2
)

// CategoryParams builds the query parameters for one listing page.
func CategoryParams(page, perPage int, today bool) url.Values {
	params := url.Values{}
	params.Set("category_main_cb", strconv.Itoa(CategoryMain))
	params.Set("category_type_cb", strconv.Itoa(CategoryType))
	params.Set("locality_region_id", strconv.Itoa(LocalityRegionID))
	params.Set("no_auction", "1")
	params.Set("page", strconv.Itoa(page)) // numeration starts from 1
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("sort", strconv.Itoa(SortOrder))
	params.Set("tms", strconv.FormatInt(timestampMillis(), 10))
	if today {
		params.Set("estate_age", strconv.Itoa(EstateAgeToday))
	}
	return params
}

// EstateParams builds the query parameters for one detail request.
func EstateParams() url.Values {
	params := url.Values{}
	params.Set("tms", strconv.FormatInt(timestampMillis(), 10))
	return params
}

// EstateURL constructs the detail endpoint URL for an item.
func EstateURL(apiURL string, hashID int64) string {
	return fmt.Sprintf("%s/%d", apiURL, hashID)
}

func timestampMillis() int64 {
	return time.Now().UnixMilli()
}
