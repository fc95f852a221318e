package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Extraction — одна попытка распознавания (успешная или нет).
type Extraction struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Endpoint  string // http | callable | telegram
	Caller    string // email / chat id; пусто для анонимного HTTP
	Engine    string
	ImageHash string
	Found     bool
	TextLen   int
	Error     string
}

type ExtractionRepo struct{ DB *sql.DB }

func NewExtractionRepo(db *sql.DB) *ExtractionRepo { return &ExtractionRepo{DB: db} }

var schema = []string{`
create table if not exists ocr_extractions (
  id           uuid primary key,
  created_at   timestamptz not null default now(),
  endpoint     text not null,
  caller       text,
  engine       text not null,
  image_sha256 text not null,
  found        boolean not null,
  text_len     integer not null default 0,
  error        text
)`,
	`create index if not exists ocr_extractions_created_at_idx on ocr_extractions (created_at desc)`,
}

func (r *ExtractionRepo) EnsureSchema(ctx context.Context) error {
	for _, q := range schema {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Record дописывает строку журнала. ID и CreatedAt проставляются, если пустые.
func (r *ExtractionRepo) Record(ctx context.Context, e Extraction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const q = `
insert into ocr_extractions (id, created_at, endpoint, caller, engine, image_sha256, found, text_len, error)
values ($1,$2,$3,nullif($4,''),$5,$6,$7,$8,nullif($9,''))`
	_, err := r.DB.ExecContext(ctx, q,
		e.ID, e.CreatedAt, e.Endpoint, e.Caller, e.Engine, e.ImageHash, e.Found, e.TextLen, e.Error,
	)
	return err
}

func (r *ExtractionRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// PurgeOlderThan удаляет старые записи журнала.
func (r *ExtractionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from ocr_extractions where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
