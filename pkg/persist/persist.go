package persist

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

type Transaction interface {
	Insert(list ...interface{}) error
}

type InsertFunc func(...interface{}) error

func (f InsertFunc) Insert(list ...interface{}) error {
	return f(list...)
}

// IsConflict reports whether err is a primary key or unique constraint
// violation.
func IsConflict(err error) bool {
	var sqliteError sqlite3.Error
	if errors.As(err, &sqliteError) {
		return sqliteError.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteError.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// InsertOrMerge inserts each row, handing rows that already exist to merge.
func InsertOrMerge(t Transaction, merge func(row interface{}) error) Transaction {
	return InsertFunc(func(list ...interface{}) error {
		for _, row := range list {
			err := t.Insert(row)
			if IsConflict(err) {
				err = merge(row)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
