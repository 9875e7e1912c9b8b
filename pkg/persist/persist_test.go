package persist

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestInsertOrMerge(t *testing.T) {
	stored := map[string]bool{"ALGI": true}
	var merged []interface{}

	tx := InsertFunc(func(list ...interface{}) error {
		key := list[0].(string)
		if stored[key] {
			return sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}
		}
		stored[key] = true
		return nil
	})

	err := InsertOrMerge(tx, func(row interface{}) error {
		merged = append(merged, row)
		return nil
	}).Insert("1MA017", "ALGI")

	assert.NoError(t, err)
	assert.Equal(t, []interface{}{"ALGI"}, merged)
	assert.True(t, stored["1MA017"])
}

func TestInsertOrMergePassesOtherErrors(t *testing.T) {
	boom := errors.New("disk full")
	tx := InsertFunc(func(list ...interface{}) error { return boom })

	err := InsertOrMerge(tx, func(interface{}) error {
		t.Fatal("merge must not run")
		return nil
	}).Insert("1MA017")
	assert.ErrorIs(t, err, boom)
}

func TestIsConflict(t *testing.T) {
	unique := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	assert.True(t, IsConflict(unique))
	assert.True(t, IsConflict(fmt.Errorf("wrapped: %w", unique)))
	assert.False(t, IsConflict(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, IsConflict(nil))
}
