package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rongwang/kasciraya-server/internal/export"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTransactionsXLSX(t *testing.T) {
	wallets := []models.Wallet{{ID: "w1", Name: "Cash"}}
	categories := []models.Category{{ID: "c1", Name: "Food & Drinks", Type: models.Expense}}
	txs := []models.Transaction{
		{
			Date:        time.Date(2024, 7, 5, 12, 30, 0, 0, time.UTC),
			Amount:      50000,
			Type:        models.Expense,
			Description: "Lunch with team",
			CategoryID:  "c1",
			WalletID:    "w1",
		},
		{
			Date:       time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
			Amount:     8000000,
			Type:       models.Income,
			CategoryID: "gone",
			WalletID:   "w1",
		},
	}

	data, err := export.TransactionsXLSX(txs, wallets, categories)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, export.Headers, rows[0])
	assert.Equal(t, []string{"2024-07-05", "expense", "Cash", "Food & Drinks", "Lunch with team", "50000", "-50000"}, rows[1])
	// Unknown category ids fall back to the id
	assert.Equal(t, "gone", rows[2][3])
	assert.Equal(t, "8000000", rows[2][5])
}

func TestTransactionsXLSXEmpty(t *testing.T) {
	data, err := export.TransactionsXLSX(nil, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, export.Headers, rows[0])
}
