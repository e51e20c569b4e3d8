package fiscalyear

import (
    "context"
    "sort"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/ledger"
)

// ProductQuantity is the quantity sold of one product.
type ProductQuantity struct {
    ProductID string
    Quantity  int64
}

// Summary aggregates the orders dated inside a year.
type Summary struct {
    YearID      uuid.UUID
    Revenue     int64
    OrderCount  int
    TopProducts []ProductQuantity
}

// Summarize filters orders to the year and ranks products by quantity, ties by
// product id. topN <= 0 keeps every product.
func Summarize(y ledger.FiscalYear, orders []ledger.Order, topN int) Summary {
    sum := Summary{YearID: y.ID}
    qty := map[string]int64{}
    for _, o := range orders {
        if !y.Contains(o.Date) { continue }
        sum.Revenue += o.NetToPay
        sum.OrderCount++
        for _, it := range o.Items { qty[it.ProductID] += it.Quantity }
    }
    sum.TopProducts = make([]ProductQuantity, 0, len(qty))
    for id, q := range qty { sum.TopProducts = append(sum.TopProducts, ProductQuantity{ProductID: id, Quantity: q}) }
    sort.Slice(sum.TopProducts, func(i, j int) bool {
        a, b := sum.TopProducts[i], sum.TopProducts[j]
        if a.Quantity != b.Quantity { return a.Quantity > b.Quantity }
        return a.ProductID < b.ProductID
    })
    if topN > 0 && len(sum.TopProducts) > topN { sum.TopProducts = sum.TopProducts[:topN] }
    return sum
}

func (s *service) Summary(ctx context.Context, id uuid.UUID, orders []ledger.Order, topN int) (Summary, error) {
    y, err := s.store.YearByID(ctx, id)
    if err != nil { return Summary{}, err }
    return Summarize(y, orders, topN), nil
}

// Balances are the income statement totals of a year's validated entries.
type Balances struct {
    YearID   uuid.UUID
    Revenue  int64
    Expenses int64
}

// Result is revenue minus expenses.
func (b Balances) Result() int64 { return b.Revenue - b.Expenses }

func (s *service) Balances(ctx context.Context, id uuid.UUID) (Balances, error) {
    y, err := s.store.YearByID(ctx, id)
    if err != nil { return Balances{}, err }
    validated := true
    entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{Validated: &validated, From: &y.Start, To: &y.End})
    if err != nil { return Balances{}, err }
    accounts, err := s.store.ListAccounts(ctx)
    if err != nil { return Balances{}, err }
    types := make(map[uuid.UUID]ledger.AccountType, len(accounts))
    for _, a := range accounts { types[a.ID] = a.Type }

    out := Balances{YearID: y.ID}
    for _, e := range entries {
        for _, ln := range e.Lines {
            switch types[ln.AccountID] {
            case ledger.AccountTypeRevenue:
                out.Revenue += ln.Credit - ln.Debit
            case ledger.AccountTypeExpense:
                out.Expenses += ln.Debit - ln.Credit
            }
        }
    }
    return out, nil
}
