package database

import (
	stderrors "errors"

	"github.com/mattn/go-sqlite3"
)

// IsBusy SQLite库被其他连接锁定，稍后重试通常能成功
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !stderrors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
