// Package report holds the outcome of a run, one record per presented
// stimulus, and writes it out as CSV, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Status is the final state of a run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusAborted  Status = "aborted"
)

// RecordShown is the status of every record: only stimuli that finished
// presenting are recorded.
const RecordShown = "shown"

// Seconds is a duration serialized as fractional seconds.
type Seconds time.Duration

// Duration converts back to a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Float returns the value in seconds.
func (s Seconds) Float() float64 { return time.Duration(s).Seconds() }

func (s Seconds) String() string {
	return strconv.FormatFloat(s.Float(), 'f', -1, 64)
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Float())
}

func (s Seconds) MarshalYAML() (any, error) {
	return s.Float(), nil
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	return s.set(f)
}

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	return s.set(f)
}

func (s *Seconds) set(f float64) error {
	ns := math.Round(f * float64(time.Second))
	if math.IsNaN(ns) || ns >= math.MaxInt64 || ns <= math.MinInt64 {
		return fmt.Errorf("seconds: %v is out of range", f)
	}
	*s = Seconds(ns)
	return nil
}

// Response is the participant's answer to a stimulus.
type Response struct {
	Key string  `json:"key" yaml:"key"`
	RT  Seconds `json:"rt" yaml:"rt"` // measured from stimulus onset
}

// Record is the outcome of one presented stimulus.
type Record struct {
	Index     int       `json:"index" yaml:"index"`
	Name      string    `json:"name" yaml:"name"`
	Kind      string    `json:"kind" yaml:"kind"`
	Trial     int       `json:"trial,omitempty" yaml:"trial,omitempty"`
	Condition string    `json:"condition,omitempty" yaml:"condition,omitempty"`
	Status    string    `json:"status" yaml:"status"`
	Onset     Seconds   `json:"onset" yaml:"onset"` // offset from run start
	Response  *Response `json:"response,omitempty" yaml:"response,omitempty"`
	TimedOut  bool      `json:"timed_out" yaml:"timed_out"`
}

// RunReport is the ordered log of one dispatcher run.
type RunReport struct {
	RunID       uuid.UUID `json:"run_id" yaml:"run_id"`
	Environment string    `json:"environment" yaml:"environment"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
	Status      Status    `json:"status" yaml:"status"`
	Failure     string    `json:"failure,omitempty" yaml:"failure,omitempty"`
	Records     []Record  `json:"records" yaml:"records"`
}

// New starts a report for a run in env.
func New(env string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:       uuid.New(),
		Environment: env,
		StartedAt:   startedAt,
		Status:      StatusRunning,
		Records:     []Record{},
	}
}

// Append adds a record. The record's index is its position in the report.
func (r *RunReport) Append(rec Record) {
	rec.Index = len(r.Records)
	r.Records = append(r.Records, rec)
}

// Finish closes the report. A non-nil cause marks it aborted.
func (r *RunReport) Finish(at time.Time, cause error) {
	r.FinishedAt = at
	if cause != nil {
		r.Status = StatusAborted
		r.Failure = cause.Error()
		return
	}
	r.Status = StatusComplete
}

// Len returns the number of records.
func (r *RunReport) Len() int {
	return len(r.Records)
}
