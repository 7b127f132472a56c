package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
	"github.com/aradsms/telco_churn_prep/internal/platform/objectstore"
)

var (
	fixedRunID = uuid.MustParse("4b1f6a2e-9c0d-4e55-8a41-0c7e1d2f3a4b")
	fixedNow   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func setupExporterTest(t *testing.T, cfg ExporterConfig) (*Exporter, *objectstore.Store) {
	store, err := objectstore.Open(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := NewExporter(store, cfg, discardLogger())
	e.newID = func() uuid.UUID { return fixedRunID }
	e.now = func() time.Time { return fixedNow }
	return e, store
}

func trainingSplit(t *testing.T) domain.TrainingSplit {
	split, err := StratifiedSplit(preparedPopulation(t, 100, 30), ChurnLabel, domain.DefaultSplitConfig())
	require.NoError(t, err)
	return split
}

func TestExporter_ExportTraining_CSV(t *testing.T) {
	e, store := setupExporterTest(t, ExporterConfig{Format: FormatCSV})
	split := trainingSplit(t)
	ctx := context.Background()

	manifest, err := e.ExportTraining(ctx, split)
	require.NoError(t, err)

	assert.Equal(t, fixedRunID.String(), manifest.RunID)
	assert.Equal(t, ModeTraining, manifest.Mode)
	assert.Equal(t, domain.FeatureColumns, manifest.Columns)
	require.Len(t, manifest.Partitions, 3)

	run := store.WithPrefix("runs/" + fixedRunID.String())
	for i, want := range []struct {
		name string
		rows []domain.PreparedCustomer
	}{
		{"train", split.Train}, {"validate", split.Validate}, {"test", split.Test},
	} {
		pm := manifest.Partitions[i]
		assert.Equal(t, want.name, pm.Name)
		assert.Equal(t, want.name+".csv", pm.Key)
		assert.Equal(t, len(want.rows), pm.Rows)
		require.NotNil(t, pm.ChurnRate)
		assert.InDelta(t, 0.3, *pm.ChurnRate, 0.05)
		assert.Contains(t, pm.Summary, "tenure")

		data, err := run.Read(ctx, pm.Key)
		require.NoError(t, err)
		sum := sha3.Sum256(data)
		assert.Equal(t, hex.EncodeToString(sum[:]), pm.Checksum)
		assert.Equal(t, len(data), pm.Bytes)

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, len(want.rows)+1)
		assert.Equal(t, domain.FeatureColumns, records[0])
		assert.Equal(t, want.rows[0].Record(), records[1])
	}

	raw, err := run.Read(ctx, "manifest.yaml")
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	if diff := cmp.Diff(*manifest, decoded); diff != "" {
		t.Errorf("manifest on disk differs (-returned +stored):\n%s", diff)
	}
}

func TestExporter_ExportPrediction_ZstdCSV(t *testing.T) {
	e, store := setupExporterTest(t, ExporterConfig{Format: FormatCSV, Compression: CompressionZstd})
	ctx := context.Background()

	c := dslCustomer("new-1")
	c.Churn = ""
	rows, _, err := NewTransformer(discardLogger()).Transform(ctx, []domain.Customer{c, noInternetCustomer("old-2")})
	require.NoError(t, err)
	rows[1].Churn, rows[1].ChurnEncoded = "", nil

	manifest, err := e.ExportPrediction(ctx, rows)
	require.NoError(t, err)
	require.Len(t, manifest.Partitions, 1)
	pm := manifest.Partitions[0]
	assert.Equal(t, "prediction.csv.zst", pm.Key)
	assert.Nil(t, pm.ChurnRate)

	compressed, err := store.WithPrefix("runs/"+manifest.RunID).Read(ctx, pm.Key)
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	data, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)

	want, err := EncodeCSV(rows)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))
}

func TestExporter_ExportTraining_Parquet(t *testing.T) {
	e, store := setupExporterTest(t, ExporterConfig{Format: FormatParquet})
	split := trainingSplit(t)
	ctx := context.Background()

	manifest, err := e.ExportTraining(ctx, split)
	require.NoError(t, err)
	assert.Equal(t, "test.parquet", manifest.Partitions[2].Key)

	data, err := store.WithPrefix("runs/"+manifest.RunID).Read(ctx, "test.parquet")
	require.NoError(t, err)
	got, err := parquet.Read[domain.PreparedCustomer](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	if diff := cmp.Diff(split.Test, got); diff != "" {
		t.Errorf("parquet round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExporter_StoreFailure(t *testing.T) {
	e, store := setupExporterTest(t, ExporterConfig{Format: FormatCSV})
	require.NoError(t, store.Close())

	_, err := e.ExportTraining(context.Background(), trainingSplit(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestExporter_RefusesExistingRun(t *testing.T) {
	e, store := setupExporterTest(t, ExporterConfig{Format: FormatCSV})
	ctx := context.Background()

	first, err := e.ExportTraining(ctx, trainingSplit(t))
	require.NoError(t, err)

	_, err = e.ExportPrediction(ctx, preparedPopulation(t, 10, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)

	raw, err := store.WithPrefix("runs/"+first.RunID).Read(ctx, "manifest.yaml")
	require.NoError(t, err)
	var kept Manifest
	require.NoError(t, yaml.Unmarshal(raw, &kept))
	assert.Equal(t, ModeTraining, kept.Mode)
}

func TestExporter_FailedPartitionDiscardsRun(t *testing.T) {
	dir := t.TempDir()
	runDir := filepath.Join(dir, "runs", fixedRunID.String())
	// A directory where test.csv should go makes that one partition fail.
	require.NoError(t, os.MkdirAll(filepath.Join(runDir, "test.csv"), 0750))

	store, err := objectstore.Open(context.Background(), "file://"+dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	e := NewExporter(store, ExporterConfig{Format: FormatCSV}, discardLogger())
	e.newID = func() uuid.UUID { return fixedRunID }
	e.now = func() time.Time { return fixedNow }

	_, err = e.ExportTraining(context.Background(), trainingSplit(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIO)

	for _, name := range []string{"train.csv", "validate.csv", "manifest.yaml"} {
		_, statErr := os.Stat(filepath.Join(runDir, name))
		assert.True(t, os.IsNotExist(statErr), "%s should not survive a failed run", name)
	}
}

func TestEncodeCSV_MissingValuesAreEmpty(t *testing.T) {
	row := domain.PreparedCustomer{CustomerID: "x", Tenure: 3}
	data, err := EncodeCSV([]domain.PreparedCustomer{row})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	fields := map[string]string{}
	for i, name := range records[0] {
		fields[name] = records[1][i]
	}
	assert.Equal(t, "", fields["gender_encoded"])
	assert.Equal(t, "", fields["number_relationships"])
	assert.Equal(t, "0", fields["dsl_encoded"])
	assert.Equal(t, "3", fields["tenure"])
}
