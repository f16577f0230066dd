package sreality

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
)

func newTestClient(t *testing.T, apiURL string) *Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Catalog.APIURL = apiURL
	cfg.Fetch.Attempts = 3
	cfg.Fetch.SettleDelay = 0
	cfg.Fetch.Timeout = 5 * time.Second
	cfg.Tor.Enabled = false

	client, err := NewClient(cfg, logger.NewTestLogger())
	require.NoError(t, err)
	return client
}

func TestClientGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "payload")
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		body, err := client.Get(server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var requests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if requests < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, "recovered")
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		body, err := client.Get(server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, "recovered", string(body))
		assert.Equal(t, 3, requests)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		var requests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.Get(server.URL, nil)
		require.Error(t, err)
		assert.Equal(t, 3, requests)

		var terr *errors.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, errors.KindTransport, terr.Kind)
		assert.Equal(t, http.StatusServiceUnavailable, terr.Code)
	})

	t.Run("sends query parameters and headers", func(t *testing.T) {
		var gotQuery url.Values
		var gotAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			gotAgent = r.Header.Get("User-Agent")
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		params := url.Values{}
		params.Set("page", "2")
		_, err := client.Get(server.URL, params)
		require.NoError(t, err)
		assert.Equal(t, "2", gotQuery.Get("page"))
		assert.Contains(t, gotAgent, "Mozilla")
	})
}

func TestClientGetJSON(t *testing.T) {
	t.Run("malformed payload is a decode error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "{not json")
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		var target map[string]interface{}
		err := client.GetJSON(server.URL, nil, &target)
		require.Error(t, err)

		var terr *errors.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, errors.KindDecode, terr.Kind)
	})
}

func TestClientListCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("category_main_cb"))
		assert.Equal(t, "1", r.URL.Query().Get("no_auction"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "60", r.URL.Query().Get("per_page"))
		assert.NotEmpty(t, r.URL.Query().Get("tms"))
		assert.Empty(t, r.URL.Query().Get("estate_age"))

		fmt.Fprint(w, `{"result_size": 125, "_embedded": {"estates": [{"hash_id": 100, "name": "Prodej bytu 2+1 83 m²"}]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	listing, err := client.ListCategory(2, 60, false)
	require.NoError(t, err)
	assert.Equal(t, 125, listing.ResultSize)
	require.Len(t, listing.Embedded.Estates, 1)
	assert.Equal(t, int64(100), listing.Embedded.Estates[0].HashID)
}

func TestClientListCategoryToday(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("estate_age"))
		fmt.Fprint(w, `{"result_size": 0, "_embedded": {"estates": []}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ListCategory(1, 60, true)
	require.NoError(t, err)
}

func TestClientFetchEstate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345", r.URL.Path)
		fmt.Fprint(w, `{"name": {"value": "x"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	raw, err := client.FetchEstate(12345)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": {"value": "x"}}`, string(raw))
}

func TestClientCheckIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "203.0.113.7")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ip, err := client.CheckIP(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestEstateURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/estates/42", EstateURL("https://api.example.com/estates", 42))
}

func TestParseEstate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		estate, err := ParseEstate([]byte(`{"name": {"value": "t"}, "map": {"lat": 1.5, "lon": 2.5}}`))
		require.NoError(t, err)
		require.NotNil(t, estate.Name)
		assert.Equal(t, "t", estate.Name.Value)
		require.NotNil(t, estate.Map)
		assert.Equal(t, 1.5, estate.Map.Lat)
		assert.Nil(t, estate.Locality)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := ParseEstate([]byte("{broken"))
		require.Error(t, err)

		var terr *errors.Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, errors.KindDecode, terr.Kind)
	})
}
