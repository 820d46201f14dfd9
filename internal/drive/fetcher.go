package drive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

// Fetcher pulls the input workbooks of an analysis from Drive.
type Fetcher struct {
	source Source
	log    zerolog.Logger
}

func NewFetcher(source Source) *Fetcher {
	return &Fetcher{source: source, log: logger.Component("drive")}
}

// FetchInputs downloads the inventory and promotion workbooks concurrently.
func (f *Fetcher) FetchInputs(ctx context.Context, inventoryID, promotionID string) (inventory, promotion []byte, err error) {
	if inventoryID == "" || promotionID == "" {
		return nil, nil, fmt.Errorf("both inventory and promotion file ids are required")
	}

	var invBuf, promoBuf bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := f.source.DownloadFile(gctx, inventoryID, &invBuf); err != nil {
			return fmt.Errorf("inventory workbook: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := f.source.DownloadFile(gctx, promotionID, &promoBuf); err != nil {
			return fmt.Errorf("promotion workbook: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	f.log.Info().
		Str("inventory_id", inventoryID).
		Int("inventory_bytes", invBuf.Len()).
		Str("promotion_id", promotionID).
		Int("promotion_bytes", promoBuf.Len()).
		Msg("fetched input workbooks")

	return invBuf.Bytes(), promoBuf.Bytes(), nil
}

// FetchFolder downloads every xlsx file of a Drive folder into dir and
// returns the local paths in listing order.
func (f *Fetcher) FetchFolder(ctx context.Context, folderPath, dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	folderID, err := f.source.FindFolderByPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	files, err := f.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.ToLower(filepath.Ext(file.Name)) != ".xlsx" {
			continue
		}

		localPath := filepath.Join(dir, filepath.Base(file.Name))
		out, err := os.Create(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create local file %s: %w", localPath, err)
		}
		err = f.source.DownloadFile(ctx, file.ID, out)
		out.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", file.Name, err)
		}
		localPaths = append(localPaths, localPath)
	}

	f.log.Info().Str("folder", folderPath).Int("files", len(localPaths)).Msg("downloaded drive folder")
	return localPaths, nil
}
