package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
	"github.com/aradsms/telco_churn_prep/internal/platform/objectstore"
)

// Output formats and compressions understood by the Exporter.
const (
	FormatCSV       = "csv"
	FormatParquet   = "parquet"
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Export modes recorded in the manifest.
const (
	ModeTraining   = "training"
	ModePrediction = "prediction"
)

const manifestName = "manifest.yaml"

// Manifest describes one export run.
type Manifest struct {
	RunID      string              `yaml:"run_id"`
	Mode       string              `yaml:"mode"`
	Format     string              `yaml:"format"`
	CreatedAt  time.Time           `yaml:"created_at"`
	Columns    []string            `yaml:"columns"`
	Partitions []PartitionManifest `yaml:"partitions"`
}

// PartitionManifest describes one written partition.
type PartitionManifest struct {
	Name      string                 `yaml:"name"`
	Key       string                 `yaml:"key"`
	URI       string                 `yaml:"uri"`
	Rows      int                    `yaml:"rows"`
	Bytes     int                    `yaml:"bytes"`
	Checksum  string                 `yaml:"sha3_256"`
	ChurnRate *float64               `yaml:"churn_rate,omitempty"`
	Summary   map[string]ColumnStats `yaml:"summary,omitempty"`
}

// ColumnStats is a numeric column's mean and sample standard deviation.
type ColumnStats struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"std_dev"`
}

// ExporterConfig selects the encoding of exported partitions.
type ExporterConfig struct {
	Format      string
	Compression string // csv only
}

// Exporter writes prepared tables and a manifest under runs/<run_id>/ in the output store.
// The manifest is written last, so a run directory without one is incomplete.
// A failed run deletes whatever partitions it managed to write.
type Exporter struct {
	store  *objectstore.Store
	cfg    ExporterConfig
	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewExporter(store *objectstore.Store, cfg ExporterConfig, logger *slog.Logger) *Exporter {
	if cfg.Format == "" {
		cfg.Format = FormatCSV
	}
	if cfg.Compression == "" {
		cfg.Compression = CompressionNone
	}
	return &Exporter{
		store:  store,
		cfg:    cfg,
		logger: logger.With("service_component", "Exporter"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.New,
	}
}

type partition struct {
	name string
	rows []domain.PreparedCustomer
}

// ExportTraining writes the train, validate and test partitions.
func (e *Exporter) ExportTraining(ctx context.Context, split domain.TrainingSplit) (*Manifest, error) {
	return e.export(ctx, ModeTraining, []partition{
		{name: "train", rows: split.Train},
		{name: "validate", rows: split.Validate},
		{name: "test", rows: split.Test},
	})
}

// ExportPrediction writes the single prediction table.
func (e *Exporter) ExportPrediction(ctx context.Context, rows []domain.PreparedCustomer) (*Manifest, error) {
	return e.export(ctx, ModePrediction, []partition{{name: "prediction", rows: rows}})
}

func (e *Exporter) export(ctx context.Context, mode string, parts []partition) (*Manifest, error) {
	start := time.Now()
	defer func() { stageDurationHist.WithLabelValues("export").Observe(time.Since(start).Seconds()) }()

	runID := e.newID().String()
	run := e.store.WithPrefix("runs/" + runID)
	e.logger.InfoContext(ctx, "Starting export", "run_id", runID, "mode", mode, "format", e.cfg.Format)

	exists, err := run.Exists(ctx, manifestName)
	if err != nil {
		return nil, fmt.Errorf("check run %s: %w: %w", runID, domain.ErrIO, err)
	}
	if exists {
		return nil, fmt.Errorf("run %s already exists: %w", runID, domain.ErrIO)
	}

	results := make([]PartitionManifest, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			pm, err := e.writePartition(gctx, run, part)
			if err != nil {
				return err
			}
			results[i] = pm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.ErrorContext(ctx, "Export failed", "run_id", runID, "error", err)
		e.discardRun(ctx, run, runID)
		return nil, fmt.Errorf("export run %s: %w: %w", runID, domain.ErrIO, err)
	}

	manifest := &Manifest{
		RunID:      runID,
		Mode:       mode,
		Format:     e.cfg.Format,
		CreatedAt:  e.now(),
		Columns:    domain.FeatureColumns,
		Partitions: results,
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := run.Write(ctx, manifestName, data, "application/yaml"); err != nil {
		e.logger.ErrorContext(ctx, "Failed to write manifest", "run_id", runID, "error", err)
		e.discardRun(ctx, run, runID)
		return nil, fmt.Errorf("write manifest: %w: %w", domain.ErrIO, err)
	}

	e.logger.InfoContext(ctx, "Export complete", "run_id", runID, "manifest", run.URI(manifestName))
	return manifest, nil
}

// discardRun removes the objects of a failed run. Errors are logged only.
func (e *Exporter) discardRun(ctx context.Context, run *objectstore.Store, runID string) {
	names, err := run.List(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to list incomplete run", "run_id", runID, "error", err)
		return
	}
	for _, name := range names {
		if err := run.Delete(ctx, name); err != nil {
			e.logger.WarnContext(ctx, "Failed to delete object of incomplete run", "run_id", runID, "object", name, "error", err)
		}
	}
}

func (e *Exporter) writePartition(ctx context.Context, run *objectstore.Store, part partition) (PartitionManifest, error) {
	name, contentType := e.objectName(part.name)

	data, err := e.encode(part.rows)
	if err != nil {
		return PartitionManifest{}, fmt.Errorf("encode %s: %w", part.name, err)
	}
	if err := run.Write(ctx, name, data, contentType); err != nil {
		return PartitionManifest{}, err
	}

	sum := sha3.Sum256(data)
	rowsWrittenCounter.WithLabelValues(part.name, e.cfg.Format).Add(float64(len(part.rows)))
	e.logger.InfoContext(ctx, "Wrote partition", "partition", part.name, "uri", run.URI(name), "num_records", len(part.rows), "bytes", len(data))

	return PartitionManifest{
		Name:      part.name,
		Key:       name,
		URI:       run.URI(name),
		Rows:      len(part.rows),
		Bytes:     len(data),
		Checksum:  hex.EncodeToString(sum[:]),
		ChurnRate: churnRate(part.rows),
		Summary:   summarize(part.rows),
	}, nil
}

func (e *Exporter) objectName(partition string) (name, contentType string) {
	if e.cfg.Format == FormatParquet {
		return partition + ".parquet", "application/vnd.apache.parquet"
	}
	if e.cfg.Compression == CompressionZstd {
		return partition + ".csv.zst", "application/zstd"
	}
	return partition + ".csv", "text/csv"
}

func (e *Exporter) encode(rows []domain.PreparedCustomer) ([]byte, error) {
	switch e.cfg.Format {
	case FormatParquet:
		return EncodeParquet(rows)
	case FormatCSV:
		data, err := EncodeCSV(rows)
		if err != nil || e.cfg.Compression != CompressionZstd {
			return data, err
		}
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", e.cfg.Format)
	}
}

// EncodeCSV renders rows with a header of domain.FeatureColumns.
func EncodeCSV(rows []domain.PreparedCustomer) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(domain.FeatureColumns); err != nil {
		return nil, err
	}
	for i := range rows {
		if err := writer.Write(rows[i].Record()); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeParquet renders rows as a parquet file using the struct tags of domain.PreparedCustomer.
func EncodeParquet(rows []domain.PreparedCustomer) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// churnRate is the share of labelled rows with churn_encoded == 1, nil when no row is labelled.
func churnRate(rows []domain.PreparedCustomer) *float64 {
	var labelled, churned int
	for i := range rows {
		if rows[i].ChurnEncoded == nil {
			continue
		}
		labelled++
		churned += *rows[i].ChurnEncoded
	}
	if labelled == 0 {
		return nil
	}
	rate := float64(churned) / float64(labelled)
	return &rate
}

func summarize(rows []domain.PreparedCustomer) map[string]ColumnStats {
	if len(rows) < 2 {
		return nil
	}
	tenure := make([]float64, len(rows))
	monthly := make([]float64, len(rows))
	total := make([]float64, len(rows))
	for i := range rows {
		tenure[i] = float64(rows[i].Tenure)
		monthly[i] = rows[i].MonthlyCharges
		total[i] = rows[i].TotalCharges
	}
	out := make(map[string]ColumnStats, 3)
	for name, values := range map[string][]float64{
		"tenure":          tenure,
		"monthly_charges": monthly,
		"total_charges":   total,
	} {
		mean, std := stat.MeanStdDev(values, nil)
		out[name] = ColumnStats{Mean: mean, StdDev: std}
	}
	return out
}
