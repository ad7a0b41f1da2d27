package service

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/database"
	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/logger"
	"github.com/wfunc/serial-console/internal/models"
	"github.com/wfunc/serial-console/internal/repository"
	"go.uber.org/zap"
)

const (
	historyBatchSize     = 100
	historyQueueSize     = 1000
	historyFlushInterval = 2 * time.Second
)

// historyService 操作记录服务
//
// Record 只入队，后台协程批量写库，队列满时丢弃。
type historyService struct {
	repo          repository.CommandLogRepository
	retentionDays int
	logger        *zap.Logger

	mu      sync.Mutex
	buffer  []*models.CommandLog
	queue   chan *models.CommandLog
	flushCh chan chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewHistoryService 创建操作记录服务并启动后台写入
func NewHistoryService(repo repository.CommandLogRepository, cfg *config.HistoryConfig) HistoryService {
	s := &historyService{
		repo:          repo,
		retentionDays: cfg.RetentionDays,
		logger:        logger.GetModuleLogger("database"),
		buffer:        make([]*models.CommandLog, 0, historyBatchSize),
		queue:         make(chan *models.CommandLog, historyQueueSize),
		flushCh:       make(chan chan struct{}),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.backgroundWriter()
	return s
}

func (s *historyService) backgroundWriter() {
	defer close(s.done)

	ticker := time.NewTicker(historyFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-s.queue:
			s.mu.Lock()
			s.buffer = append(s.buffer, entry)
			if len(s.buffer) >= historyBatchSize {
				s.flushBuffer()
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.mu.Lock()
			s.flushBuffer()
			s.mu.Unlock()

		case ack := <-s.flushCh:
			s.drain()
			close(ack)

		case <-s.stopCh:
			s.drain()
			return
		}
	}
}

// drain 写入队列和缓冲区中的全部记录
func (s *historyService) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case entry := <-s.queue:
			s.buffer = append(s.buffer, entry)
		default:
			s.flushBuffer()
			return
		}
	}
}

func (s *historyService) flushBuffer() {
	if len(s.buffer) == 0 {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var failed error
	for i, entry := range s.buffer {
		err := s.repo.Create(ctx, entry)
		if err == nil {
			continue
		}
		failed = err
		// 数据库忙时保留剩余记录，下次再写
		if database.IsBusy(err) && len(s.buffer)-i <= historyQueueSize {
			logger.LogDatabaseOperation("insert", "command_logs", time.Since(start), failed)
			s.buffer = append(s.buffer[:0], s.buffer[i:]...)
			return
		}
	}
	logger.LogDatabaseOperation("insert", "command_logs", time.Since(start), failed)
	s.buffer = s.buffer[:0]
}

// Record 异步记录一次操作
func (s *historyService) Record(entry *models.CommandLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case s.queue <- entry:
	default:
		s.logger.Warn("操作记录队列已满，丢弃记录", zap.String("operation", entry.Operation))
	}
}

// Flush 等待已入队的记录写入数据库
func (s *historyService) Flush() {
	ack := make(chan struct{})
	select {
	case s.flushCh <- ack:
		<-ack
	case <-s.done:
	}
}

// Close 写入剩余记录并停止后台协程
func (s *historyService) Close() {
	s.once.Do(func() {
		close(s.stopCh)
		<-s.done
	})
}

func (s *historyService) Query(ctx context.Context, filter *models.CommandLogFilter) ([]*models.CommandLog, *repository.Pagination, error) {
	logs, page, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return logs, page, nil
}

func (s *historyService) Latest(ctx context.Context, limit int) ([]*models.CommandLog, error) {
	logs, err := s.repo.Latest(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return logs, nil
}

// Cleanup 删除超过保留天数的记录，保留天数<=0时不删除
func (s *historyService) Cleanup(ctx context.Context) (int64, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	before := time.Now().AddDate(0, 0, -s.retentionDays)
	n, err := s.repo.DeleteBefore(ctx, before)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabaseDelete)
	}
	if n > 0 {
		s.logger.Info("清理过期操作记录", zap.Int64("deleted", n), zap.Time("before", before))
	}
	return n, nil
}
