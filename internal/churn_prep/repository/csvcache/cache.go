// Package csvcache stores the customers table as a local CSV snapshot in the
// layout pandas produces with to_csv: a blank-headed row-index column followed
// by the source columns in table order.
package csvcache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

// Store is a file-backed domain.CustomerCache.
type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger.With("component", "customer_cache_csv")}
}

func (s *Store) Path() string { return s.path }

// Exists reports whether a snapshot is present at the cache path.
func (s *Store) Exists() (bool, error) {
	info, err := os.Stat(s.path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("cache path %s is a directory: %w", s.path, domain.ErrIO)
		}
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat cache %s: %w: %w", s.path, domain.ErrIO, err)
}

// Write replaces the snapshot with customers. The file is written to a temp
// name and renamed so readers never see a partial snapshot.
func (s *Store) Write(ctx context.Context, customers []domain.Customer) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			s.logger.ErrorContext(ctx, "Failed to create cache directory", "path", dir, "error", err)
			return fmt.Errorf("create cache directory %s: %w: %w", dir, domain.ErrIO, err)
		}
	}

	tempPath := s.path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create cache file", "path", tempPath, "error", err)
		return fmt.Errorf("create cache file %s: %w: %w", tempPath, domain.ErrIO, err)
	}

	if err := writeCustomers(f, customers); err != nil {
		f.Close()
		_ = os.Remove(tempPath)
		s.logger.ErrorContext(ctx, "Failed to write cache file", "path", tempPath, "error", err)
		return fmt.Errorf("write cache file %s: %w: %w", tempPath, domain.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close cache file %s: %w: %w", tempPath, domain.ErrIO, err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename %s to %s: %w: %w", tempPath, s.path, domain.ErrIO, err)
	}

	s.logger.InfoContext(ctx, "Wrote customer cache", "path", s.path, "num_records", len(customers))
	return nil
}

func writeCustomers(w io.Writer, customers []domain.Customer) error {
	writer := csv.NewWriter(w)

	header := append([]string{""}, domain.CustomerColumns...)
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, c := range customers {
		if err := writer.Write(append([]string{strconv.Itoa(i)}, customerRecord(c)...)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// customerRecord renders c in domain.CustomerColumns order.
func customerRecord(c domain.Customer) []string {
	return []string{
		c.CustomerID,
		c.Gender,
		strconv.Itoa(c.SeniorCitizen),
		c.Partner,
		c.Dependents,
		strconv.Itoa(c.Tenure),
		c.PhoneService,
		c.MultipleLines,
		strconv.Itoa(c.InternetServiceTypeID),
		c.OnlineSecurity,
		c.OnlineBackup,
		c.DeviceProtection,
		c.TechSupport,
		c.StreamingTV,
		c.StreamingMovies,
		strconv.Itoa(c.ContractTypeID),
		c.PaperlessBilling,
		strconv.Itoa(c.PaymentTypeID),
		domain.FormatFloat(c.MonthlyCharges),
		c.TotalCharges,
		c.Churn,
	}
}

// Read loads the snapshot. Columns are located by header name, so a file
// written with a different column order still reads correctly.
func (s *Store) Read(ctx context.Context) ([]domain.Customer, error) {
	f, err := os.Open(s.path)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to open cache file", "path", s.path, "error", err)
		return nil, fmt.Errorf("open cache file %s: %w: %w", s.path, domain.ErrIO, err)
	}
	defer f.Close()

	customers, err := readCustomers(f)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read cache file", "path", s.path, "error", err)
		return nil, fmt.Errorf("read cache file %s: %w", s.path, err)
	}

	s.logger.InfoContext(ctx, "Read customer cache", "path", s.path, "num_records", len(customers))
	return customers, nil
}

func readCustomers(r io.Reader) ([]domain.Customer, error) {
	// Spreadsheet tools like to prepend a UTF-8 BOM; strip it before the header is parsed.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found: %w", domain.ErrIO)
		}
		return nil, fmt.Errorf("read header row: %w: %w", domain.ErrIO, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	cols := make([]int, len(domain.CustomerColumns))
	for i, name := range domain.CustomerColumns {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("cache header is missing column %q: %w", name, domain.ErrIO)
		}
		cols[i] = pos
	}

	var customers []domain.Customer
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, domain.ErrIO, err)
		}

		p := rowParser{rec: rec, cols: cols}
		c := domain.Customer{
			CustomerID:            p.strAt(0),
			Gender:                p.strAt(1),
			SeniorCitizen:         p.intAt(2),
			Partner:               p.strAt(3),
			Dependents:            p.strAt(4),
			Tenure:                p.intAt(5),
			PhoneService:          p.strAt(6),
			MultipleLines:         p.strAt(7),
			InternetServiceTypeID: p.intAt(8),
			OnlineSecurity:        p.strAt(9),
			OnlineBackup:          p.strAt(10),
			DeviceProtection:      p.strAt(11),
			TechSupport:           p.strAt(12),
			StreamingTV:           p.strAt(13),
			StreamingMovies:       p.strAt(14),
			ContractTypeID:        p.intAt(15),
			PaperlessBilling:      p.strAt(16),
			PaymentTypeID:         p.intAt(17),
			MonthlyCharges:        p.floatAt(18),
			TotalCharges:          p.strAt(19),
			Churn:                 p.strAt(20),
		}
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", line, p.err)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// rowParser pulls typed values out of one record, keeping the first error.
type rowParser struct {
	rec  []string
	cols []int
	err  error
}

func (p *rowParser) strAt(i int) string {
	return p.rec[p.cols[i]]
}

// intAt accepts "9" as well as "9.0", which pandas writes for integer columns that held a NaN.
func (p *rowParser) intAt(i int) int {
	raw := p.strAt(i)
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		p.fail(i, raw)
		return 0
	}
	return int(f)
}

func (p *rowParser) floatAt(i int) float64 {
	raw := p.strAt(i)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(i, raw)
		return 0
	}
	return f
}

func (p *rowParser) fail(i int, raw string) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: cannot parse %q: %w", domain.CustomerColumns[i], raw, domain.ErrFormat)
	}
}
