package scoring

import (
	"sort"

	"github.com/okian/teampulse/internal/domain/model"
)

// SortByOverallScore orders best first. Ties fall back to name, then id, so
// the order is deterministic.
func SortByOverallScore(perfs []model.MemberPerformance) {
	sort.SliceStable(perfs, func(i, j int) bool {
		if perfs[i].OverallScore != perfs[j].OverallScore {
			return perfs[i].OverallScore > perfs[j].OverallScore
		}
		if perfs[i].Name != perfs[j].Name {
			return perfs[i].Name < perfs[j].Name
		}
		return perfs[i].MemberID < perfs[j].MemberID
	})
}

// SortByName orders alphabetically by name, then id.
func SortByName(perfs []model.MemberPerformance) {
	sort.SliceStable(perfs, func(i, j int) bool {
		if perfs[i].Name != perfs[j].Name {
			return perfs[i].Name < perfs[j].Name
		}
		return perfs[i].MemberID < perfs[j].MemberID
	})
}

// Order names a presentation order for performance rows.
type Order string

// Supported orders. OrderRoster keeps the aggregation output as is.
const (
	OrderRoster  Order = ""
	OrderOverall Order = "overall"
	OrderName    Order = "name"
)

// ParseOrder maps a query value to an Order.
func ParseOrder(s string) (Order, bool) {
	switch o := Order(s); o {
	case OrderRoster, OrderOverall, OrderName:
		return o, true
	}
	return OrderRoster, false
}

// Apply sorts perfs in place.
func (o Order) Apply(perfs []model.MemberPerformance) {
	switch o {
	case OrderOverall:
		SortByOverallScore(perfs)
	case OrderName:
		SortByName(perfs)
	case OrderRoster:
	}
}
