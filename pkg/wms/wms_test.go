package wms

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

func testImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(1, 1, color.Gray{Y: 200})
	return img
}

func TestURLBuilderDefaultTemplate(t *testing.T) {
	b, err := NewURLBuilder(DefaultBaseURLTemplate, DefaultQueryParams)
	require.NoError(t, err)

	date := time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)
	url, err := b.Build(date, "0015")
	require.NoError(t, err)
	require.Equal(t,
		"https://mosdac.gov.in/live_data/wms/live3RL1BSTD4km/products/Insat3r/3R_IMG/2024/05SEP/3RIMG_05SEP2024_0015"+DefaultQueryParams,
		url)
}

func TestURLBuilderCustomTemplate(t *testing.T) {
	b, err := NewURLBuilder("http://example.test/{{.Date}}/t", "?x=1")
	require.NoError(t, err)

	url, err := b.Build(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "2345")
	require.NoError(t, err)
	require.Equal(t, "http://example.test/20231231/t2345?x=1", url)
}

func TestURLBuilderRejectsBadTemplate(t *testing.T) {
	_, err := NewURLBuilder("", "")
	require.Error(t, err)

	_, err = NewURLBuilder("http://x/{{.Year", "")
	require.Error(t, err)

	b, err := NewURLBuilder("http://x/{{.Unknown}}", "")
	require.NoError(t, err)
	_, err = b.Build(time.Now(), "0015")
	require.Error(t, err)
}

func TestFilename(t *testing.T) {
	require.Equal(t, "wms_image_20240915_0045.png", Filename(time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC), "0045"))
}

func TestClientFetchDecodesPNG(t *testing.T) {
	var body bytes.Buffer
	require.NoError(t, png.Encode(&body, testImage()))

	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body.Bytes())
	}))
	defer srv.Close()

	c := NewClient(time.Second, "wms-imagery-test")
	res, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "png", res.Format)
	require.Equal(t, body.Len(), res.Bytes)
	require.Equal(t, image.Rect(0, 0, 4, 3), res.Image.Bounds())
	require.Equal(t, "wms-imagery-test", userAgent)
}

func TestClientFetchReencodesJPEGAsPNG(t *testing.T) {
	var body bytes.Buffer
	require.NoError(t, jpeg.Encode(&body, testImage(), nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body.Bytes())
	}))
	defer srv.Close()

	res, err := NewClient(time.Second, "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "jpeg", res.Format)

	var out bytes.Buffer
	require.NoError(t, EncodePNG(&out, res.Image))
	_, format, err := image.Decode(&out)
	require.NoError(t, err)
	require.Equal(t, "png", format)
}

func TestClientFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := NewClient(time.Second, "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, appErrors.ErrUnexpectedStatus))
	require.NotNil(t, res)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Nil(t, res.Image)
}

func TestClientFetchUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ServiceExceptionReport/>"))
	}))
	defer srv.Close()

	res, err := NewClient(time.Second, "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, appErrors.ErrDecode))
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestClientFetchHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewClientWithHTTP(srv.Client(), "").Fetch(ctx, srv.URL)
	require.Error(t, err)
	require.Nil(t, res)
}
