package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/wms-imagery/internal/dto"
	"github.com/noah-isme/wms-imagery/internal/models"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
	"github.com/noah-isme/wms-imagery/pkg/storage"
)

type tokenSigner interface {
	Sign(runID, file string) (string, time.Time, error)
	Verify(token string) (storage.TileClaims, error)
}

type tileOpener interface {
	Open(filename string) (*os.File, error)
}

// TileConfig controls link rendering.
type TileConfig struct {
	APIPrefix string
}

// TileService issues and resolves signed links to saved tiles.
type TileService struct {
	signer tokenSigner
	store  tileOpener
	cfg    TileConfig
}

// NewTileService constructs a TileService.
func NewTileService(signer tokenSigner, store tileOpener, cfg TileConfig) *TileService {
	return &TileService{signer: signer, store: store, cfg: cfg}
}

// Links signs a download URL for every saved tile of the run.
func (s *TileService) Links(run *models.Run) ([]dto.TileLink, error) {
	if run == nil {
		return nil, nil
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	links := make([]dto.TileLink, 0, run.Saved)
	for _, item := range run.Items {
		if item.Status != models.TileStatusSaved || item.File == "" {
			continue
		}
		token, expiresAt, err := s.signer.Sign(run.ID, item.File)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign tile link")
		}
		links = append(links, dto.TileLink{
			Date:      item.Date,
			Label:     item.Label,
			URL:       fmt.Sprintf("%s/tiles/%s", prefix, token),
			ExpiresAt: expiresAt,
		})
	}
	return links, nil
}

// Open validates the token and returns the referenced tile with its name.
func (s *TileService) Open(token string) (*os.File, string, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "invalid or expired tile token")
	}
	file, err := s.store.Open(claims.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "tile not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open tile")
	}
	return file, claims.File, nil
}
