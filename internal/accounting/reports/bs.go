package reports

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/dairy-erp/ledger/internal/accounting/money"
)

// Item is one ledger presented on a balance sheet side. Amount is positive
// on the side's natural orientation.
type Item struct {
	LedgerID    int64        `json:"ledgerId"`
	LedgerName  string       `json:"ledgerName"`
	ParentGroup string       `json:"parentGroup,omitempty"`
	Amount      money.Amount `json:"amount"`
}

// Group is a named category with its member items.
type Group struct {
	Name     string       `json:"name"`
	Items    []Item       `json:"items"`
	Subtotal money.Amount `json:"subtotal"`
}

// Side holds the groups of one balance sheet column.
type Side struct {
	Groups []Group      `json:"groups"`
	Total  money.Amount `json:"total"`
}

// BalanceSheet is the categorised snapshot.
type BalanceSheet struct {
	AsOn                 time.Time    `json:"asOn"`
	Liabilities          Side         `json:"liabilities"`
	Assets               Side         `json:"assets"`
	NetProfit            money.Amount `json:"netProfit"`
	TotalLiabilitiesSide money.Amount `json:"totalLiabilitiesSide"`
	TotalAssetsSide      money.Amount `json:"totalAssetsSide"`
	Imbalance            money.Amount `json:"imbalance"`
	Tolerance            money.Amount `json:"tolerance"`
	Balanced             bool         `json:"balanced"`
	Warning              string       `json:"warning,omitempty"`
	Rules                string       `json:"rulesFingerprint"`
}

// Categorize assigns every item to the first group with a keyword contained
// in its name, falling back to its parent group. Unmatched items are
// collected in a trailing "Other Items" group. Empty groups are omitted.
// rules must be normalised.
func Categorize(items []Item, rules []GroupRule) []Group {
	fold := cases.Fold()
	groups := make([]Group, len(rules))
	for i, r := range rules {
		groups[i] = Group{Name: r.Name}
	}
	other := Group{Name: OtherItemsGroup}
	for _, item := range items {
		idx := match(fold.String(item.LedgerName), rules)
		if idx < 0 && item.ParentGroup != "" {
			idx = match(fold.String(item.ParentGroup), rules)
		}
		target := &other
		if idx >= 0 {
			target = &groups[idx]
		}
		target.Items = append(target.Items, item)
		target.Subtotal += item.Amount
	}
	out := make([]Group, 0, len(groups)+1)
	for _, g := range groups {
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	if len(other.Items) > 0 {
		out = append(out, other)
	}
	return out
}

func match(name string, rules []GroupRule) int {
	for i, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) {
				return i
			}
		}
	}
	return -1
}

// BuildBalanceSheet categorises both sides, adds net profit to the
// liabilities side and flags an imbalance larger than tolerance.
func BuildBalanceSheet(asOn time.Time, liabilities, assets []Item, netProfit money.Amount, rules Rules, tolerance money.Amount) BalanceSheet {
	bs := BalanceSheet{
		AsOn:        asOn,
		Liabilities: newSide(Categorize(liabilities, rules.Liabilities)),
		Assets:      newSide(Categorize(assets, rules.Assets)),
		NetProfit:   netProfit,
		Tolerance:   tolerance,
		Rules:       rules.Fingerprint(),
	}
	bs.TotalLiabilitiesSide = bs.Liabilities.Total + netProfit
	bs.TotalAssetsSide = bs.Assets.Total
	bs.Imbalance = bs.TotalLiabilitiesSide - bs.TotalAssetsSide
	bs.Balanced = bs.Imbalance.Abs() <= tolerance
	if !bs.Balanced {
		bs.Warning = fmt.Sprintf("liabilities side exceeds assets side by %s", bs.Imbalance)
		if bs.Imbalance < 0 {
			bs.Warning = fmt.Sprintf("assets side exceeds liabilities side by %s", bs.Imbalance.Abs())
		}
	}
	return bs
}

func newSide(groups []Group) Side {
	s := Side{Groups: groups}
	for _, g := range groups {
		s.Total += g.Subtotal
	}
	return s
}
