package sqlutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullString(t *testing.T) {
	assert.False(t, ToNullString("").Valid)
	assert.Equal(t, sql.NullString{String: "team-a", Valid: true}, ToNullString("team-a"))
	assert.Equal(t, "", FromNullString(sql.NullString{}))
	assert.Equal(t, "team-a", FromNullString(ToNullString("team-a")))
}

func TestNullInt32(t *testing.T) {
	assert.False(t, ToNullInt32(0).Valid)
	assert.Equal(t, sql.NullInt32{Int32: 10, Valid: true}, ToNullInt32(10))
	assert.Equal(t, 0, FromNullInt32(sql.NullInt32{}))
	assert.Equal(t, 7, FromNullInt32(ToNullInt32(7)))
}

func TestSqlTime(t *testing.T) {
	assert.False(t, ToSqlTime(nil).Valid)
	assert.Nil(t, FromSqlTime(sql.NullTime{}))

	now := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	got := FromSqlTime(ToSqlTime(&now))
	if assert.NotNil(t, got) {
		assert.True(t, now.Equal(*got))
	}
}
