package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrAlreadyActivated = errors.New("account already activated")
	ErrNotOwner         = errors.New("note owned by another user")
)

// mysql 唯一索引冲突错误码
const mysqlDuplicateEntry = 1062

// isDuplicateEntry 判断是否为唯一约束冲突。
//
// users.email 上的唯一索引是重复注册的最终判定依据，
// 应用层的预检查只是快速路径。
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
