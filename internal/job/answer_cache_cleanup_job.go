package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/pkg/logutil"
	"github.com/askbook/askbook/internal/repo"
)

// AnswerCacheCleanupJob drops durable cache rows past their TTL.
type AnswerCacheCleanupJob struct {
	answers *repo.AnswerCacheRepo
	ttl     time.Duration
}

func NewAnswerCacheCleanupJob(answers *repo.AnswerCacheRepo, ttl time.Duration) *AnswerCacheCleanupJob {
	return &AnswerCacheCleanupJob{answers: answers, ttl: ttl}
}

func (j *AnswerCacheCleanupJob) Name() string {
	return "answer_cache_cleanup"
}

func (j *AnswerCacheCleanupJob) Run(ctx context.Context) error {
	if j.answers == nil {
		return nil
	}
	cutoff := time.Now().Add(-j.ttl).UnixMilli()
	removed, err := j.answers.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired cached answers removed", zap.Int64("count", removed))
	}
	return nil
}
