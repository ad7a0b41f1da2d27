package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/repository"
)

// busyRepo 前 busy 次写入返回 SQLITE_BUSY
type busyRepo struct {
	repository.CommandLogRepository

	mu      sync.Mutex
	busy    int
	created []*models.CommandLog
}

func (r *busyRepo) Create(ctx context.Context, log *models.CommandLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy > 0 {
		r.busy--
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	}
	r.created = append(r.created, log)
	return nil
}

func (r *busyRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

func TestHistoryRetriesWhenBusy(t *testing.T) {
	repo := &busyRepo{busy: 1}
	history := NewHistoryService(repo, &config.HistoryConfig{Enabled: true})
	defer history.Close()

	history.Record(&models.CommandLog{Operation: models.OperationSend, Command: "a"})
	history.Record(&models.CommandLog{Operation: models.OperationSend, Command: "b"})

	history.Flush()
	assert.Equal(t, 0, repo.count())

	history.Flush()
	require.Equal(t, 2, repo.count())
	assert.Equal(t, "a", repo.created[0].Command)
	assert.Equal(t, "b", repo.created[1].Command)
}

func TestHistoryCleanupDisabled(t *testing.T) {
	history := NewHistoryService(&busyRepo{}, &config.HistoryConfig{RetentionDays: 0})
	defer history.Close()

	n, err := history.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHistoryRecordSetsTimestamp(t *testing.T) {
	repo := &busyRepo{}
	history := NewHistoryService(repo, &config.HistoryConfig{Enabled: true})
	defer history.Close()

	before := time.Now()
	history.Record(&models.CommandLog{Operation: models.OperationConnect, Port: "COM3"})
	history.Flush()

	require.Equal(t, 1, repo.count())
	assert.False(t, repo.created[0].CreatedAt.Before(before))
}
