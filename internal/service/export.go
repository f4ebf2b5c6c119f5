package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// DestinationRow is the columnar layout of an exported destination.
type DestinationRow struct {
	ID            string `parquet:"id"`
	Name          string `parquet:"name"`
	Description   string `parquet:"description"`
	ImageURL      string `parquet:"image_url,optional"`
	ImageResource string `parquet:"image_resource,optional"`
}

// ExportService writes catalog snapshots to Parquet.
type ExportService struct {
	destinations *DestinationService
}

// NewExportService creates a new ExportService.
func NewExportService(destinations *DestinationService) *ExportService {
	return &ExportService{destinations: destinations}
}

// WriteParquet writes every destination to w and returns the number of rows.
func (s *ExportService) WriteParquet(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.destinations.List(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([]DestinationRow, len(records))
	for i, rec := range records {
		rows[i] = DestinationRow{
			ID:            rec.ID,
			Name:          rec.Name,
			Description:   rec.Description,
			ImageURL:      rec.ImageURL,
			ImageResource: rec.ImageResource,
		}
	}

	pw := parquet.NewGenericWriter[DestinationRow](w)
	if _, err := pw.Write(rows); err != nil {
		return 0, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return len(rows), nil
}

// ReadParquet loads destination rows previously written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]DestinationRow, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[DestinationRow](pf)
	defer reader.Close()

	rows := make([]DestinationRow, 0, pf.NumRows())
	batch := make([]DestinationRow, 64)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return rows, nil
}
