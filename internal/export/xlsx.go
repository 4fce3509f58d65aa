// Package export renders ledger data as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	// ContentType is the MIME type of the workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Transactions"
)

// Headers is the first row of the sheet
var Headers = []string{"Date", "Type", "Wallet", "Category", "Description", "Amount", "Signed Amount"}

var columnWidths = map[string]float64{
	"A": 12,
	"B": 10,
	"C": 15,
	"D": 18,
	"E": 36,
	"F": 14,
	"G": 14,
}

// TransactionsXLSX writes one row per transaction in the given order. Wallet
// and category ids are resolved to names; unknown ids are written as is.
func TransactionsXLSX(txs []models.Transaction, wallets []models.Wallet, categories []models.Category) ([]byte, error) {
	walletNames := make(map[string]string, len(wallets))
	for _, w := range wallets {
		walletNames[w.ID] = w.Name
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	nameOf := func(names map[string]string, id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for idx, t := range txs {
		row := []interface{}{
			t.Date.UTC().Format("2006-01-02"),
			string(t.Type),
			nameOf(walletNames, t.WalletID),
			nameOf(categoryNames, t.CategoryID),
			t.Description,
			t.Amount,
			t.Signed(),
		}
		cell := fmt.Sprintf("A%d", idx+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", idx+2, err)
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set width of column %s: %w", col, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
