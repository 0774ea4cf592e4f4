package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestNewPanelShape(t *testing.T) {
	t.Parallel()
	_, err := NewPanel([]time.Time{day(1)}, []string{"A"}, [][]float64{{1}, {2}})
	assert.Error(t, err)
	_, err = NewPanel([]time.Time{day(1)}, []string{"A", "B"}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestPanelValidate(t *testing.T) {
	t.Parallel()
	p, err := NewPanel([]time.Time{day(1)}, nil, [][]float64{{}})
	require.NoError(t, err)
	assert.Error(t, p.Validate(), "no instruments")

	p, err = NewPanel([]time.Time{day(1)}, []string{"A"}, [][]float64{{-1}})
	require.NoError(t, err)
	assert.Error(t, p.Validate())
}

func TestPanelSortedHeadReturns(t *testing.T) {
	t.Parallel()
	p, err := NewPanel(
		[]time.Time{day(3), day(1), day(2)},
		[]string{"A", "B"},
		[][]float64{{12, 30}, {10, 20}, {11, 25}},
	)
	require.NoError(t, err)
	s := p.Sorted()
	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, s.Dates)
	assert.Equal(t, []float64{10, 11, 12}, s.Column("A"))
	assert.Equal(t, 12.0, p.Rows[0][0], "source untouched")

	h := s.Head(2)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 25.0, h.Price(1, "B"))

	r := s.Returns()
	assert.Equal(t, []float64{0, 0}, r[0])
	assert.InDelta(t, 0.1, r[1][0], 1e-12)
	assert.InDelta(t, 0.25, r[1][1], 1e-12)

	sel, err := s.Select("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, sel.Columns)
	_, err = s.Select("Z")
	assert.Error(t, err)
}

func TestSameDay(t *testing.T) {
	t.Parallel()
	assert.True(t, SameDay(day(1), day(1).Add(5*time.Hour)))
	assert.False(t, SameDay(day(1), day(2)))
}
