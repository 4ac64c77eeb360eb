package patient

import (
	"context"

	"github.com/google/uuid"
)

// Recorder receives mutation counts. *telemetry.TelemetryProvider satisfies it; nil is allowed.
type Recorder interface {
	RecordMutation(op string)
}

type Service struct {
	records Repository
	metrics Recorder
}

func NewService(records Repository, metrics Recorder) *Service {
	return &Service{records: records, metrics: metrics}
}

func (s *Service) observe(op string) {
	if s.metrics != nil {
		s.metrics.RecordMutation(op)
	}
}

func (s *Service) CreateRecord(ctx context.Context, n NewRecord) (*Record, error) {
	n.ApplyDefaults()
	if err := Validate(n); err != nil {
		return nil, err
	}
	rec := &Record{NewRecord: n}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.observe("create")
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

// UpdateRecord replaces every field of an existing record; the identifier is kept.
func (s *Service) UpdateRecord(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		return &ValidationError{Fields: map[string]string{"id": "El identificador del registro es obligatorio."}}
	}
	rec.ApplyDefaults()
	if err := Validate(rec.NewRecord); err != nil {
		return err
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return err
	}
	s.observe("update")
	return nil
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}
	s.observe("delete")
	return nil
}

func (s *Service) ListRecords(ctx context.Context) ([]Record, error) {
	return s.records.ListAll(ctx)
}
