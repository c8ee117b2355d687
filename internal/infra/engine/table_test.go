package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Floats(t *testing.T) {
	tbl := &Table{
		Columns: []string{"DATE", "LOCID", "BT"},
		Rows: [][]any{
			{"1990-01-01", int64(1), int64(150)},
			{"1990-01-01", int64(2), nil},
			{"1990-01-01", int64(3), "201.5"},
			{"1990-01-01", int64(4), float64(99)},
		},
	}

	got, err := tbl.Floats("bt")
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 201.5, 99}, got)

	_, err = tbl.Floats("ROW")
	assert.True(t, errors.Is(err, ErrNoColumn))

	_, err = tbl.Floats("DATE")
	assert.Error(t, err)
}

func TestTable_ColumnStripsQualifier(t *testing.T) {
	tbl := &Table{Columns: []string{"t1.DATE", "t1.BT"}}
	idx, err := tbl.Column("BT")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestSliceDate(t *testing.T) {
	v, err := sliceDate("2002-06-15", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "2002", v)

	v, err = sliceDate([]byte("2002-06-15"), 5, 7)
	require.NoError(t, err)
	assert.Equal(t, "06", v)

	v, err = sliceDate(nil, 8, 10)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = sliceDate("2002", 5, 7)
	assert.Error(t, err)

	_, err = sliceDate(int64(2002), 0, 4)
	assert.Error(t, err)
}
