package service

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
	"github.com/noah-isme/wms-imagery/pkg/storage"
)

func TestTileServiceLinksAndOpen(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("wms_image_20240915_0015.png", []byte("png-bytes"))
	require.NoError(t, err)

	svc := NewTileService(storage.NewSignedURLSigner("secret", time.Hour), store, TileConfig{APIPrefix: "/api/v1/"})
	links, err := svc.Links(sampleRun())
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "0015", links[0].Label)
	require.True(t, strings.HasPrefix(links[0].URL, "/api/v1/tiles/"))

	token := strings.TrimPrefix(links[0].URL, "/api/v1/tiles/")
	file, name, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, "wms_image_20240915_0015.png", name)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(body))
}

func TestTileServiceOpenRejectsTamperedToken(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewTileService(storage.NewSignedURLSigner("secret", time.Hour), store, TileConfig{})

	_, _, err = svc.Open("run-1.123.abc.deadbeef")
	require.True(t, errors.Is(err, appErrors.ErrInvalidToken))
}

func TestTileServiceOpenMissingFile(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewTileService(signer, store, TileConfig{})

	token, _, err := signer.Sign("run-1", "gone.png")
	require.NoError(t, err)
	_, _, err = svc.Open(token)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}
