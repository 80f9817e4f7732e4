package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// GuideAudioRepository stores admin overrides for guide cue tracks.
type GuideAudioRepository struct {
	pool *pgxpool.Pool
}

func NewGuideAudioRepository(pool *pgxpool.Pool) *GuideAudioRepository {
	return &GuideAudioRepository{pool: pool}
}

func (r *GuideAudioRepository) GetAll(ctx context.Context) ([]model.GuideAudio, error) {
	rows, err := r.pool.Query(ctx, `SELECT audio_key, url, updated_at FROM guide_audios ORDER BY audio_key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audios []model.GuideAudio
	for rows.Next() {
		var a model.GuideAudio
		if err := rows.Scan(&a.AudioKey, &a.URL, &a.UpdatedAt); err != nil {
			return nil, err
		}
		audios = append(audios, a)
	}
	return audios, rows.Err()
}

func (r *GuideAudioRepository) Upsert(ctx context.Context, key, url string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO guide_audios (audio_key, url, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (audio_key) DO UPDATE SET url = EXCLUDED.url, updated_at = NOW()`,
		key, url)
	return err
}

func (r *GuideAudioRepository) Delete(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guide_audios WHERE audio_key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
