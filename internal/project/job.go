package project

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/piwi3910/GridCut/internal/engine"
	"github.com/piwi3910/GridCut/internal/model"
)

// ErrInvalidJob is returned when a job fails validation.
var ErrInvalidJob = errors.New("invalid job")

// Job is a saved placement problem: the stocks, the remaining demand and
// the pieces placed so far.
type Job struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	PolicyID  int                 `json:"policy_id"`
	Stocks    []*model.Stock      `json:"stocks"`
	Products  []*model.Product    `json:"products"`
	Pieces    []model.PlacedPiece `json:"pieces,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewJob creates an empty job using the first-fit policy.
func NewJob(name string) Job {
	return Job{
		ID:       uuid.New().String()[:8],
		Name:     name,
		PolicyID: engine.FirstFitID,
	}
}

// Validate rejects jobs without stocks, with non-positive sizes or with
// negative quantities.
func (j Job) Validate() error {
	if len(j.Stocks) == 0 {
		return fmt.Errorf("%w: no stocks", ErrInvalidJob)
	}
	for i, s := range j.Stocks {
		if s == nil || s.Width() <= 0 || s.Height() <= 0 {
			return fmt.Errorf("%w: stock %d has no cells", ErrInvalidJob, i)
		}
		if err := model.CheckStockSize(s.Width(), s.Height()); err != nil {
			return fmt.Errorf("%w: stock %d: %w", ErrInvalidJob, i, err)
		}
	}
	for i, p := range j.Products {
		if p == nil {
			return fmt.Errorf("%w: product %d is null", ErrInvalidJob, i)
		}
		if p.Size.Width <= 0 || p.Size.Height <= 0 {
			return fmt.Errorf("%w: product %d (%s) has size %s", ErrInvalidJob, i, p.Label, p.Size)
		}
		if p.Quantity < 0 {
			return fmt.Errorf("%w: product %d (%s) has negative quantity %d", ErrInvalidJob, i, p.Label, p.Quantity)
		}
	}
	return nil
}

// Policy builds the placement policy named by the job.
func (j Job) Policy() (engine.Policy, error) {
	return engine.New(j.PolicyID)
}

// Record appends the outcome of a run or a single step to the job.
func (j *Job) Record(pieces ...model.PlacedPiece) {
	j.Pieces = append(j.Pieces, pieces...)
}

// Result returns the job's current state as a run result.
func (j Job) Result() model.RunResult {
	result := model.RunResult{Stocks: j.Stocks, Pieces: j.Pieces, Steps: len(j.Pieces)}
	for _, p := range j.Products {
		if p.Quantity > 0 {
			result.Unplaced = append(result.Unplaced, *p)
		}
	}
	return result
}

// SaveJob stamps UpdatedAt and writes the job to path.
func SaveJob(path string, job Job) error {
	job.UpdatedAt = time.Now().UTC()
	if err := writeJSON(path, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// LoadJob reads and validates a job file. A missing policy id defaults to
// first fit.
func LoadJob(path string) (Job, error) {
	job := Job{PolicyID: engine.FirstFitID}
	if err := readJSON(path, &job); err != nil {
		return Job{}, fmt.Errorf("failed to load job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}
