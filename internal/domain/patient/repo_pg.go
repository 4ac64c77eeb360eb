package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn() queryable {
	return r.pool
}

const recordCols = `id, to_char(event_date, 'YYYY-MM-DD'), name, age, sex,
	registry_code, diagnosis, risk_factor, origin, attending_physician,
	genexpert_lavage, tb_culture, mycology_lavage, non_afb_lavage,
	genexpert_sputum, non_afb_sputum_culture, biopsy, biopsy_result,
	observation, outcome, biopsy_number, diagnosis_code, diagnosis_detail,
	created_at, updated_at`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.EventDate, &rec.Name, &rec.Age, &rec.Sex,
		&rec.RegistryCode, &rec.Diagnosis, &rec.RiskFactor, &rec.Origin, &rec.AttendingPhysician,
		&rec.GeneXpertLavage, &rec.TBCulture, &rec.MycologyLavage, &rec.NonAFBLavage,
		&rec.GeneXpertSputum, &rec.NonAFBSputumCulture, &rec.Biopsy, &rec.BiopsyResult,
		&rec.Observation, &rec.Outcome, &rec.BiopsyNumber, &rec.DiagnosisCode, &rec.DiagnosisDetail,
		&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	err := r.conn().QueryRow(ctx, `
		INSERT INTO patient_record (id, event_date, name, age, sex,
			registry_code, diagnosis, risk_factor, origin, attending_physician,
			genexpert_lavage, tb_culture, mycology_lavage, non_afb_lavage,
			genexpert_sputum, non_afb_sputum_culture, biopsy, biopsy_result,
			observation, outcome, biopsy_number, diagnosis_code, diagnosis_detail)
		VALUES ($1,$2::text::date,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING created_at, updated_at`,
		rec.ID, rec.EventDate, rec.Name, rec.Age, string(rec.Sex),
		rec.RegistryCode, rec.Diagnosis, rec.RiskFactor, rec.Origin, rec.AttendingPhysician,
		rec.GeneXpertLavage, rec.TBCulture, rec.MycologyLavage, rec.NonAFBLavage,
		rec.GeneXpertSputum, rec.NonAFBSputumCulture, string(rec.Biopsy), rec.BiopsyResult,
		rec.Observation, rec.Outcome, rec.BiopsyNumber, rec.DiagnosisCode, rec.DiagnosisDetail,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn().QueryRow(ctx, `SELECT `+recordCols+` FROM patient_record WHERE id = $1`, id))
}

func (r *recordRepoPG) Update(ctx context.Context, rec *Record) error {
	err := r.conn().QueryRow(ctx, `
		UPDATE patient_record SET event_date=$2::text::date, name=$3, age=$4, sex=$5,
			registry_code=$6, diagnosis=$7, risk_factor=$8, origin=$9, attending_physician=$10,
			genexpert_lavage=$11, tb_culture=$12, mycology_lavage=$13, non_afb_lavage=$14,
			genexpert_sputum=$15, non_afb_sputum_culture=$16, biopsy=$17, biopsy_result=$18,
			observation=$19, outcome=$20, biopsy_number=$21, diagnosis_code=$22, diagnosis_detail=$23,
			updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		rec.ID, rec.EventDate, rec.Name, rec.Age, string(rec.Sex),
		rec.RegistryCode, rec.Diagnosis, rec.RiskFactor, rec.Origin, rec.AttendingPhysician,
		rec.GeneXpertLavage, rec.TBCulture, rec.MycologyLavage, rec.NonAFBLavage,
		rec.GeneXpertSputum, rec.NonAFBSputumCulture, string(rec.Biopsy), rec.BiopsyResult,
		rec.Observation, rec.Outcome, rec.BiopsyNumber, rec.DiagnosisCode, rec.DiagnosisDetail,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update patient record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn().Exec(ctx, `DELETE FROM patient_record WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepoPG) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := r.conn().Query(ctx, `SELECT `+recordCols+` FROM patient_record ORDER BY event_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list patient records: %w", err)
	}
	defer rows.Close()

	items := []Record{}
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	return items, rows.Err()
}
