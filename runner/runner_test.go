package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/tabprep/config"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

const trainCSV = `RowNumber,CreditScore,Geography,Age,Balance,Exited
1,619,France,42,0,1
2,608,Spain,41,83807.86,0
3,502,France,,159660.8,1
4,699,France,39,0,0
4,699,France,39,0,0
5,850,Spain,43,125510.82,0
`

func testConfig(t *testing.T, csv string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "train.csv")
	if err := os.WriteFile(in, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Input.Path = in
	cfg.Input.Format = "csv"
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Target = "Exited"
	cfg.Cleaning = config.CleaningConfig{
		DropColumns:    []string{"RowNumber"},
		DropDuplicates: true,
		FillMedian:     []string{"Age"},
	}
	cfg.Features = preprocessing.FeatureSpec{
		Numeric:     []string{"CreditScore", "Age", "Balance"},
		Categorical: []string{"Geography"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return &cfg
}

func TestFit(t *testing.T) {
	cfg := testConfig(t, trainCSV)

	res, err := Fit(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if res.RunID == "" {
		t.Error("missing run ID")
	}
	if res.RowsIn != 6 || res.RowsOut != 5 || res.DuplicatesRemoved != 1 {
		t.Errorf("rows in/out/dup = %d/%d/%d, want 6/5/1", res.RowsIn, res.RowsOut, res.DuplicatesRemoved)
	}

	want := []string{"CreditScore", "Age", "Balance", "Geography_France", "Geography_Spain"}
	if strings.Join(res.Columns, ",") != strings.Join(want, ",") {
		t.Errorf("Columns = %v, want %v", res.Columns, want)
	}

	out, err := dataset.ReadCSVFile(res.DataPath, dataset.ReadOptions{})
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := out.Columns(); got[len(got)-1] != "Exited" || len(got) != len(want)+1 {
		t.Errorf("output header = %v", got)
	}
	if out.Len() != 5 {
		t.Errorf("output rows = %d, want 5", out.Len())
	}
	if v := out.Get(0, "Exited").Key(); v != "1" {
		t.Errorf("target copied as %q, want 1", v)
	}

	loaded, err := preprocessing.LoadFile(res.StatePath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !loaded.Equal(res.State) {
		t.Error("saved state differs from the fitted state")
	}
}

func TestFitThenApply(t *testing.T) {
	cfg := testConfig(t, trainCSV)
	cfg.Output.Registry = filepath.Join(cfg.Output.Dir, "registry.db")
	cfg.Output.Name = "bank"
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		t.Fatal(err)
	}

	fitRes, err := Fit(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if fitRes.Revision != 1 {
		t.Errorf("Revision = %d, want 1", fitRes.Revision)
	}

	newData := "RowNumber,CreditScore,Geography,Age,Balance\n9,700,Germany,35,1000\n10,650,,,\n"
	in := filepath.Join(filepath.Dir(cfg.Input.Path), "new.csv")
	if err := os.WriteFile(in, []byte(newData), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Input.Path = in
	cfg.Output.DataFile = "applied.csv"
	errors.SetWarningHandler(func(error) {})

	res, err := Apply(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.RowsIn != 2 || res.RowsOut != 2 {
		t.Errorf("rows in/out = %d/%d, want 2/2", res.RowsIn, res.RowsOut)
	}
	if !res.State.Equal(fitRes.State) {
		t.Error("registry state differs from fitted state")
	}

	out, err := dataset.ReadCSVFile(res.DataPath, dataset.ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Has("Exited") {
		t.Error("target column should not be added when absent from input")
	}
	for _, c := range []string{"Geography_France", "Geography_Spain"} {
		if v := out.Get(0, c).Key(); v != "0" {
			t.Errorf("unseen category: %s = %q, want 0", c, v)
		}
	}
	if v := out.Get(1, "Age").Key(); v != "0" {
		t.Errorf("missing Age = %q, want 0", v)
	}
}

func TestFit_SchemaMismatch(t *testing.T) {
	cfg := testConfig(t, trainCSV)
	cfg.Features.Numeric = append(cfg.Features.Numeric, "Tenure")

	_, err := Fit(context.Background(), cfg)
	if !errors.IsSchemaMismatch(err) {
		t.Fatalf("expected SchemaMismatch, got %v", err)
	}
	if _, statErr := os.Stat(cfg.StatePath()); !os.IsNotExist(statErr) {
		t.Error("no state file should be written on failure")
	}
}

func TestApply_MissingState(t *testing.T) {
	cfg := testConfig(t, trainCSV)
	if _, err := Apply(context.Background(), cfg); err == nil {
		t.Error("expected error without a fitted state")
	}
}

func TestFit_Canceled(t *testing.T) {
	cfg := testConfig(t, trainCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Fit(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	cfg := testConfig(t, trainCSV)
	res, err := Fit(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	var buf bytes.Buffer
	if err := Describe(&buf, res.State); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	for _, want := range []string{"samples:       5", "Geography", "2 categories: France, Spain", "Geography_Spain"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, buf.String())
		}
	}
}

func TestFit_LogsRunID(t *testing.T) {
	provider, _ := log.NewTestLoggerProvider(log.LevelInfo)
	log.SetProvider(provider)
	t.Cleanup(func() { log.SetProvider(log.NewZerologProvider(log.LevelInfo)) })

	res, err := Fit(context.Background(), testConfig(t, trainCSV))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	logger := provider.Logger()
	if !logger.ContainsMessage("fit run completed") {
		t.Error("expected run completion to be logged")
	}
	if !logger.ContainsField(log.RunIDKey, res.RunID) {
		t.Errorf("expected records tagged with run id %s", res.RunID)
	}
	if !logger.ContainsField(log.ComponentKey, "runner") {
		t.Error("expected runner component field")
	}
}
