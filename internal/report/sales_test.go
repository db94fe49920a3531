package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSales(t *testing.T) {
	var buf bytes.Buffer
	rows := []SalesRow{
		{DishID: 1, DishName: "Pizza", Quantity: 3, Revenue: decimal.RequireFromString("37.5")},
		{DishID: 2, DishName: "Salad", Quantity: 2, Revenue: decimal.RequireFromString("14")},
	}
	require.NoError(t, WriteSales(&buf, rows, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"Dish ID", "Dish", "Quantity sold", "Revenue"}, got[1])
	assert.Equal(t, []string{"1", "Pizza", "3", "37.5"}, got[2])
	assert.Equal(t, []string{"", "Total", "5", "51.5"}, got[4])
}

func TestWriteSales_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, nil, time.Now()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(salesSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Total", got[2][1])
}
