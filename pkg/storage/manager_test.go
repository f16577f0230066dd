package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/sreality"
)

// fakeSource serves prebuilt image payloads by href.
type fakeSource struct {
	images map[string][]byte
	calls  int
}

func (f *fakeSource) DownloadImage(href string) ([]byte, error) {
	f.calls++
	data, ok := f.images[href]
	if !ok {
		return nil, fmt.Errorf("no such image: %s", href)
	}
	return data, nil
}

// testJPEG renders a solid JPEG of the given size.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestManager(t *testing.T, source ImageSource) (*Manager, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.JSONDir = filepath.Join(dir, "json")
	cfg.Storage.ImageDir = filepath.Join(dir, "img")

	m, err := NewManager(cfg, source, logger.NewTestLogger())
	require.NoError(t, err)
	return m, cfg
}

func TestSaveRawDocument(t *testing.T) {
	m, cfg := newTestManager(t, &fakeSource{})

	payload := []byte(`{"name": {"value": "x"}}`)
	require.NoError(t, m.SaveRawDocument(12345, payload))

	saved, err := os.ReadFile(filepath.Join(cfg.Storage.JSONDir, "12345.json"))
	require.NoError(t, err)
	assert.Equal(t, payload, saved, "the raw payload must be stored byte for byte")
}

func TestImageBundleDir(t *testing.T) {
	m, cfg := newTestManager(t, &fakeSource{})

	link := cfg.Catalog.BaseURL + "detail/prodej/byt/2+1/praha-liben-nad-rokoskou/12345"
	dir := m.ImageBundleDir(link)
	assert.Equal(t, filepath.Join(cfg.Storage.ImageDir, "detail_prodej_byt_2+1_praha-liben-nad-rokoskou_12345"), dir)
}

func TestSaveEstateImages(t *testing.T) {
	estate := func(hrefs ...string) *sreality.Estate {
		e := &sreality.Estate{Embedded: &sreality.EstateEmbedded{}}
		for _, href := range hrefs {
			var img sreality.Image
			img.Links.Self.Href = href
			e.Embedded.Images = append(e.Embedded.Images, img)
		}
		return e
	}

	t.Run("downloads and crops", func(t *testing.T) {
		source := &fakeSource{images: map[string][]byte{
			"https://img.example.com/a.jpg": testJPEG(t, 400, 300),
			"https://img.example.com/b.jpg": testJPEG(t, 400, 300),
		}}
		m, cfg := newTestManager(t, source)

		link := cfg.Catalog.BaseURL + "detail/prodej/byt/2+1/praha-liben-/42"
		err := m.SaveEstateImages(estate("https://img.example.com/a.jpg", "https://img.example.com/b.jpg"), 42, link, false)
		require.NoError(t, err)

		bundleDir := m.ImageBundleDir(link)
		for i := 0; i < 2; i++ {
			path := filepath.Join(bundleDir, fmt.Sprintf("42_%03d.jpg", i))
			file, err := os.Open(path)
			require.NoError(t, err)
			img, _, err := image.Decode(file)
			file.Close()
			require.NoError(t, err)

			// The top watermark strip covers the smaller area on a wide image
			assert.Equal(t, 400, img.Bounds().Dx())
			assert.Equal(t, 300-cfg.Storage.CropTop, img.Bounds().Dy())
		}
	})

	t.Run("cache skips existing files", func(t *testing.T) {
		source := &fakeSource{images: map[string][]byte{
			"https://img.example.com/a.jpg": testJPEG(t, 400, 300),
		}}
		m, cfg := newTestManager(t, source)

		link := cfg.Catalog.BaseURL + "detail/prodej/byt/2+1/praha-liben-/43"
		require.NoError(t, m.SaveEstateImages(estate("https://img.example.com/a.jpg"), 43, link, false))
		require.Equal(t, 1, source.calls)

		require.NoError(t, m.SaveEstateImages(estate("https://img.example.com/a.jpg"), 43, link, true))
		assert.Equal(t, 1, source.calls, "a cached image must not be downloaded again")
	})

	t.Run("failed image fails the bundle but not the loop", func(t *testing.T) {
		source := &fakeSource{images: map[string][]byte{
			"https://img.example.com/good.jpg": testJPEG(t, 400, 300),
		}}
		m, cfg := newTestManager(t, source)

		link := cfg.Catalog.BaseURL + "detail/prodej/byt/2+1/praha-liben-/44"
		err := m.SaveEstateImages(estate("https://img.example.com/missing.jpg", "https://img.example.com/good.jpg"), 44, link, false)
		require.Error(t, err)

		// The good image was still saved
		_, statErr := os.Stat(filepath.Join(m.ImageBundleDir(link), "44_001.jpg"))
		assert.NoError(t, statErr)
	})

	t.Run("no images is fine", func(t *testing.T) {
		m, cfg := newTestManager(t, &fakeSource{})
		link := cfg.Catalog.BaseURL + "detail/prodej/byt/2+1/praha-liben-/45"
		require.NoError(t, m.SaveEstateImages(&sreality.Estate{}, 45, link, false))

		info, err := os.Stat(m.ImageBundleDir(link))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestCropWatermark(t *testing.T) {
	t.Run("wide image loses the top strip", func(t *testing.T) {
		img, err := cropWatermark(testJPEG(t, 400, 300), 43, 187)
		require.NoError(t, err)
		assert.Equal(t, 400, img.Bounds().Dx())
		assert.Equal(t, 257, img.Bounds().Dy())
	})

	t.Run("tall image loses the left strip", func(t *testing.T) {
		img, err := cropWatermark(testJPEG(t, 300, 900), 43, 187)
		require.NoError(t, err)
		// leftArea = 187*900, topArea = 43*300: the top strip is smaller
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 857, img.Bounds().Dy())
	})

	t.Run("short image loses the left strip", func(t *testing.T) {
		// leftArea = 187*100 = 18700, topArea = 43*500 = 21500
		img, err := cropWatermark(testJPEG(t, 500, 100), 43, 187)
		require.NoError(t, err)
		assert.Equal(t, 500-187, img.Bounds().Dx())
		assert.Equal(t, 100, img.Bounds().Dy())
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := cropWatermark([]byte("garbage"), 43, 187)
		require.Error(t, err)
	})
}

func TestRawDocumentInventory(t *testing.T) {
	m, _ := newTestManager(t, &fakeSource{})

	require.NoError(t, m.SaveRawDocument(100, []byte("{}")))
	require.NoError(t, m.SaveRawDocument(200, []byte("{}")))

	docs, err := m.ListRawDocuments()
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	ids := make(map[int64]bool)
	for _, path := range docs {
		id, err := HashIDFromRawName(path)
		require.NoError(t, err)
		ids[id] = true
	}
	assert.True(t, ids[100])
	assert.True(t, ids[200])

	require.NoError(t, m.RemoveRawDocument(docs[0]))
	docs, err = m.ListRawDocuments()
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestHashIDFromRawName(t *testing.T) {
	id, err := HashIDFromRawName("/data/json/12345.json")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	_, err = HashIDFromRawName("/data/json/readme.json")
	require.Error(t, err)
}
