package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/serial-console/internal/models"
	"gorm.io/gorm"
)

// CommandLogRepositoryTestSuite 操作记录仓储测试套件
type CommandLogRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo CommandLogRepository
	ctx  context.Context
}

func (s *CommandLogRepositoryTestSuite) SetupSuite() {
	s.db = SetupTestDB()
	s.repo = NewCommandLogRepository(s.db)
	s.ctx = context.Background()
}

func (s *CommandLogRepositoryTestSuite) TearDownSuite() {
	CleanupTestDB(s.db)
}

func (s *CommandLogRepositoryTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM command_logs")
}

func (s *CommandLogRepositoryTestSuite) seed() {
	entries := []*models.CommandLog{
		{Operation: models.OperationConnect, Port: "COM3", Success: true, Source: models.SourceHTTP},
		{Operation: models.OperationSend, Port: "COM3", Command: "PING", Success: true, Source: models.SourceHTTP},
		{Operation: models.OperationSend, Port: "COM3", Command: "md", Success: false, ErrorCode: 3001, Source: models.SourceWebSocket},
		{Operation: models.OperationDisconnect, Port: "COM3", Success: true, Source: models.SourceHTTP},
	}
	for _, e := range entries {
		s.Require().NoError(s.repo.Create(s.ctx, e))
	}
}

func (s *CommandLogRepositoryTestSuite) TestCreate() {
	log := &models.CommandLog{Operation: models.OperationSend, Port: "COM3", Command: "STATUS", Success: true}
	s.Require().NoError(s.repo.Create(s.ctx, log))
	s.NotZero(log.ID)
	s.False(log.CreatedAt.IsZero())
}

func (s *CommandLogRepositoryTestSuite) TestLatest() {
	s.seed()

	logs, err := s.repo.Latest(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Equal(models.OperationDisconnect, logs[0].Operation)
	s.Equal("md", logs[1].Command)
}

func (s *CommandLogRepositoryTestSuite) TestQueryFilters() {
	s.seed()

	logs, page, err := s.repo.Query(s.ctx, &models.CommandLogFilter{Operation: models.OperationSend})
	s.Require().NoError(err)
	s.Len(logs, 2)
	s.EqualValues(2, page.Total)

	failed := false
	logs, page, err = s.repo.Query(s.ctx, &models.CommandLogFilter{Success: &failed})
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(3001, logs[0].ErrorCode)
	s.EqualValues(1, page.Total)

	future := time.Now().Add(time.Hour)
	logs, _, err = s.repo.Query(s.ctx, &models.CommandLogFilter{Since: &future})
	s.Require().NoError(err)
	s.Empty(logs)
}

func (s *CommandLogRepositoryTestSuite) TestQueryPaging() {
	s.seed()

	logs, page, err := s.repo.Query(s.ctx, &models.CommandLogFilter{Page: 2, PageSize: 3})
	s.Require().NoError(err)
	s.EqualValues(4, page.Total)
	s.Require().Len(logs, 1)
	s.Equal(models.OperationConnect, logs[0].Operation)
}

func (s *CommandLogRepositoryTestSuite) TestDeleteBefore() {
	s.seed()
	old := &models.CommandLog{Operation: models.OperationConnect, Port: "COM1", Success: true}
	s.Require().NoError(s.repo.Create(s.ctx, old))
	s.db.Model(old).Update("created_at", time.Now().AddDate(0, 0, -40))

	n, err := s.repo.DeleteBefore(s.ctx, time.Now().AddDate(0, 0, -30))
	s.Require().NoError(err)
	s.EqualValues(1, n)

	logs, err := s.repo.Latest(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(logs, 4)
}

func TestCommandLogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CommandLogRepositoryTestSuite))
}
