package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
)

func sampleJob() Job {
	job := NewJob("Kitchen")
	job.Stocks = []*model.Stock{model.NewStock("Birch", 6, 4)}
	job.Products = []*model.Product{
		model.NewProduct("Door", 1, 3, 2, 2),
		model.NewProduct("Shelf", 2, 1, 1, 3),
	}
	return job
}

func TestNewJob(t *testing.T) {
	job := NewJob("Test")
	if len(job.ID) != 8 {
		t.Errorf("expected 8-char id, got %q", job.ID)
	}
	if job.PolicyID != engine.FirstFitID {
		t.Errorf("expected first-fit policy, got %d", job.PolicyID)
	}
}

func TestSaveAndLoadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs", "kitchen.json")
	job := sampleJob()
	job.Stocks[0].Set(5, 3, 9)

	if err := SaveJob(path, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	loaded, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}

	if loaded.ID != job.ID || loaded.Name != "Kitchen" {
		t.Errorf("unexpected header %+v", loaded)
	}
	if !loaded.Stocks[0].Equal(job.Stocks[0]) {
		t.Error("stock grid did not round-trip")
	}
	if len(loaded.Products) != 2 || loaded.Products[1].Quantity != 3 {
		t.Errorf("unexpected products %+v", loaded.Products)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestLoadJobDefaultsPolicyAndAnonymousID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	data := `{"name": "raw", "stocks": [{"label": "S", "width": 2, "height": 2}],
		"products": [{"size": {"width": 1, "height": 1}, "quantity": 1}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	job, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}
	if job.PolicyID != engine.FirstFitID {
		t.Errorf("expected default policy, got %d", job.PolicyID)
	}
	if job.Products[0].ID != model.AnonymousID {
		t.Errorf("expected anonymous id, got %d", job.Products[0].ID)
	}
	if job.Stocks[0].UsedCells() != 0 {
		t.Error("dimension-only stock should be empty")
	}
}

func TestLoadJobErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadJob(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("[1,2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJob(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"name": "x"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJob(empty); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("expected ErrInvalidJob, got %v", err)
	}
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Job)
		ok     bool
	}{
		{"valid", func(*Job) {}, true},
		{"zero quantity allowed", func(j *Job) { j.Products[0].Quantity = 0 }, true},
		{"no stocks", func(j *Job) { j.Stocks = nil }, false},
		{"empty stock", func(j *Job) { j.Stocks[0] = model.NewStock("Empty", 0, 3) }, false},
		{"zero width product", func(j *Job) { j.Products[0].Size.Width = 0 }, false},
		{"negative quantity", func(j *Job) { j.Products[1].Quantity = -1 }, false},
		{"nil product", func(j *Job) { j.Products[0] = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := sampleJob()
			tt.mutate(&job)
			err := job.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidJob) {
				t.Errorf("expected ErrInvalidJob, got %v", err)
			}
		})
	}
}

func TestJobPolicy(t *testing.T) {
	job := sampleJob()
	if _, err := job.Policy(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	job.PolicyID = 3
	if _, err := job.Policy(); !errors.Is(err, engine.ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestJobRecordAndResult(t *testing.T) {
	job := sampleJob()
	job.Products[0].Quantity = 0
	job.Record(model.PlacedPiece{ProductID: 1}, model.PlacedPiece{ProductID: 1})

	result := job.Result()
	if result.Steps != 2 || len(result.Pieces) != 2 {
		t.Errorf("unexpected pieces %+v", result.Pieces)
	}
	if len(result.Unplaced) != 1 || result.Unplaced[0].Label != "Shelf" {
		t.Errorf("unexpected unplaced %+v", result.Unplaced)
	}
}

func TestLoadJobRejectsOversizedStock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	data := `{"stocks": [{"width": 4294967296, "height": 4294967296}], "products": []}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJob(path); !errors.Is(err, model.ErrStockTooLarge) {
		t.Errorf("expected ErrStockTooLarge, got %v", err)
	}
}
