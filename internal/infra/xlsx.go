package infra

import (
	"fmt"
	"io"

	"fastclick/internal/model"

	"github.com/xuri/excelize/v2"
)

// SellerRow is a seller statement paired with the seller's display name.
type SellerRow struct {
	Name      string
	Statement model.SellerStatement
}

const (
	houseSheet   = "House"
	sellersSheet = "Sellers"
)

// WriteStatementsXLSX writes a two-sheet workbook: the house summary and one
// row per seller.
func WriteStatementsXLSX(w io.Writer, house model.HouseStatement, rows []SellerRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", houseSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sellersSheet); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}

	summary := [][2]interface{}{
		{"Scope", house.Scope},
		{"Total earnings", house.TotalEarnings.InexactFloat64()},
		{"Commissions collected", house.CommissionsCollected.InexactFloat64()},
		{"Deposit fees collected", house.DepositFeesCollected.InexactFloat64()},
		{"Total due", house.TotalDue.InexactFloat64()},
		{"Cash", house.Cash.InexactFloat64()},
		{"Net profit", house.NetProfit.InexactFloat64()},
		{"Games sold", house.GamesSold},
		{"Games remaining", house.GamesRemaining},
		{"Computed at", house.ComputedAt},
	}
	for i, kv := range summary {
		if err := f.SetCellValue(houseSheet, fmt.Sprintf("A%d", i+1), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(houseSheet, fmt.Sprintf("B%d", i+1), kv[1]); err != nil {
			return err
		}
	}

	headers := []interface{}{"Seller", "Seller ID", "Games sold", "Games remaining",
		"Total earnings", "Commission paid", "Deposit fees paid", "Total due"}
	if err := f.SetSheetRow(sellersSheet, "A1", &headers); err != nil {
		return err
	}
	for i, r := range rows {
		st := r.Statement
		values := []interface{}{
			r.Name,
			st.SellerID.String(),
			st.GamesSold,
			st.GamesRemaining,
			st.TotalEarnings.InexactFloat64(),
			st.CommissionPaid.InexactFloat64(),
			st.DepositFeesPaid.InexactFloat64(),
			st.TotalDue.InexactFloat64(),
		}
		if err := f.SetSheetRow(sellersSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
