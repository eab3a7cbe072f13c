package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"berza/internal/domain"
)

// ParquetExporter writes the stored daily series out to Parquet files for
// archival and offline analysis. Layout: <dir>/daily/<CODE>/<YYYY>.parquet,
// one file per security and year, merged on re-export so repeated runs stay
// idempotent.
type ParquetExporter struct {
	Dir string
}

// NewParquetExporter creates a ParquetExporter rooted at dir.
func NewParquetExporter(dir string) *ParquetExporter {
	return &ParquetExporter{Dir: dir}
}

// priceRecord is the on-disk Parquet schema for one daily row. Optional
// columns mirror the nullable storage schema.
type priceRecord struct {
	Code           string   `parquet:"issuer_code"`
	Date           int64    `parquet:"trade_date,timestamp(millisecond)"`
	LastTradePrice *float64 `parquet:"last_trade_price,optional"`
	Max            *float64 `parquet:"max_price,optional"`
	Min            *float64 `parquet:"min_price,optional"`
	Volume         *float64 `parquet:"volume,optional"`
	Turnover       *float64 `parquet:"turnover,optional"`
}

// ExportAll exports every stored security's series.
func (e *ParquetExporter) ExportAll(ctx context.Context, ps PriceStore) error {
	codes, err := ps.ListCodes(ctx)
	if err != nil {
		return fmt.Errorf("listing codes: %w", err)
	}
	for _, code := range codes {
		if err := e.ExportCode(ctx, ps, code); err != nil {
			return err
		}
	}
	return nil
}

// ExportCode exports one security's full stored series, grouped by year and
// merged into any existing files.
func (e *ParquetExporter) ExportCode(ctx context.Context, ps PriceStore, code string) error {
	// The store holds at most a ten-year lookback, but read wide so nothing
	// hand-imported is dropped.
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	end := domain.Day(time.Now()).AddDate(0, 0, 1)

	points, err := ps.ReadSeries(ctx, code, start, end)
	if err != nil {
		return fmt.Errorf("reading series for %s: %w", code, err)
	}
	if len(points) == 0 {
		return nil
	}

	byYear := make(map[int][]priceRecord)
	for _, p := range points {
		year := p.TradeDate.Year()
		byYear[year] = append(byYear[year], priceRecord{
			Code:           p.Code,
			Date:           p.TradeDate.UnixMilli(),
			LastTradePrice: p.LastTradePrice,
			Max:            p.Max,
			Min:            p.Min,
			Volume:         p.Volume,
			Turnover:       p.Turnover,
		})
	}

	for year, records := range byYear {
		path := e.path(code, year)

		existing, _ := readParquetFile[priceRecord](path)
		merged := mergePriceRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing %s/%d: %w", code, year, err)
		}
	}
	return nil
}

// ReadYear reads back one exported year file. Used by tests and ad-hoc
// inspection tooling.
func (e *ParquetExporter) ReadYear(code string, year int) ([]priceRecord, error) {
	return readParquetFile[priceRecord](e.path(code, year))
}

// path returns the file location for one security-year.
func (e *ParquetExporter) path(code string, year int) string {
	return filepath.Join(e.Dir, "daily", code, fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergePriceRecords deduplicates by (code, date), preferring incoming records
// over existing ones. Results are sorted by date.
func mergePriceRecords(existing, incoming []priceRecord) []priceRecord {
	type key struct {
		code string
		date int64
	}
	seen := make(map[key]priceRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Code, r.Date}] = r
	}
	for _, r := range incoming {
		seen[key{r.Code, r.Date}] = r
	}

	merged := make([]priceRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}
