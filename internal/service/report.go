package service

import (
	"fmt"
	"io"
	"strings"

	"fastclick/internal/infra"
	"fastclick/internal/model"
)

// WriteStatementReport renders a plain-text statement report: the house
// summary followed by one line per seller.
func WriteStatementReport(w io.Writer, house model.HouseStatement, rows []infra.SellerRow) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Statements (scope: %s)\n", house.Scope)
	fmt.Fprintf(&b, "Computed at: %s\n\n", house.ComputedAt.UTC().Format("2006-01-02 15:04:05"))

	b.WriteString("House\n")
	fmt.Fprintf(&b, "  %-24s %12s\n", "Total earnings", house.TotalEarnings.StringFixed(2))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Commissions collected", house.CommissionsCollected.StringFixed(2))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Deposit fees collected", house.DepositFeesCollected.StringFixed(2))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Total due to sellers", house.TotalDue.StringFixed(2))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Cash", house.Cash.StringFixed(2))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Net profit", house.NetProfit.StringFixed(2))
	fmt.Fprintf(&b, "  %-24s %12d\n", "Games sold", house.GamesSold)
	fmt.Fprintf(&b, "  %-24s %12d\n", "Games remaining", house.GamesRemaining)

	b.WriteString("\nSellers\n")
	fmt.Fprintf(&b, "  %-24s %6s %6s %12s %12s %12s %12s\n",
		"Name", "Sold", "Left", "Earnings", "Commission", "Fees", "Due")
	for _, r := range rows {
		st := r.Statement
		fmt.Fprintf(&b, "  %-24s %6d %6d %12s %12s %12s %12s\n",
			r.Name, st.GamesSold, st.GamesRemaining,
			st.TotalEarnings.StringFixed(2), st.CommissionPaid.StringFixed(2),
			st.DepositFeesPaid.StringFixed(2), st.TotalDue.StringFixed(2))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
