package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/askbook/askbook/internal/model"
)

type AnswerCacheRepo struct {
	db *sqlx.DB
}

func NewAnswerCacheRepo(db *sqlx.DB) *AnswerCacheRepo {
	return &AnswerCacheRepo{db: db}
}

func (r *AnswerCacheRepo) Get(ctx context.Context, questionHash string) (*model.CachedAnswer, bool, error) {
	const query = `
		SELECT question_hash, question, answer, sources, images, ctime
		FROM answer_cache
		WHERE question_hash = $1
	`
	var item model.CachedAnswer
	if err := r.db.GetContext(ctx, &item, query, questionHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &item, true, nil
}

func (r *AnswerCacheRepo) Save(ctx context.Context, item *model.CachedAnswer) error {
	const query = `
		INSERT INTO answer_cache (question_hash, question, answer, sources, images, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (question_hash) DO UPDATE SET
			answer = EXCLUDED.answer,
			sources = EXCLUDED.sources,
			images = EXCLUDED.images,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query,
		item.QuestionHash,
		item.Question,
		item.Answer,
		item.SourcesJSON,
		item.ImagesJSON,
		item.Ctime,
	)
	return err
}

func (r *AnswerCacheRepo) Delete(ctx context.Context, questionHash string) error {
	const query = `DELETE FROM answer_cache WHERE question_hash = $1`
	_, err := r.db.ExecContext(ctx, query, questionHash)
	return err
}

func (r *AnswerCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM answer_cache WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
