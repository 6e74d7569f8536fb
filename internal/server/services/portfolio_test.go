package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/common"
	"github.com/dmitrijs2005/divkeeper/internal/server/models"
	"github.com/dmitrijs2005/divkeeper/internal/server/snapshot"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio_ListStocksGroupsDividends(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	a, err := p.CreateStock(ctx, e.ownerID, sampleStock("A", "005930"))
	require.NoError(t, err)
	b, err := p.CreateStock(ctx, e.ownerID, sampleStock("B", ""))
	require.NoError(t, err)

	for _, date := range []string{"2024-01-15", "2024-04-15"} {
		_, err := p.CreateDividend(ctx, e.ownerID, &models.Dividend{StockID: a.ID, DividendDate: date, Amount: decimal.NewFromInt(50)})
		require.NoError(t, err)
	}

	list, err := p.ListStocks(ctx, e.ownerID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, b.ID, list[0].ID, "newest first")
	assert.Empty(t, list[0].Dividends)
	assert.NotNil(t, list[0].Dividends)
	require.Len(t, list[1].Dividends, 2)
	assert.Equal(t, "2024-01-15", list[1].Dividends[0].DividendDate)
	assert.Equal(t, e.ownerID, list[1].Dividends[0].UserID)

	other, err := p.ListStocks(ctx, e.adminID)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPortfolio_Validation(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	_, err := p.CreateStock(ctx, e.ownerID, sampleStock(" ", ""))
	assert.ErrorIs(t, err, common.ErrValidation)

	neg := sampleStock("A", "")
	neg.Shares = -1
	_, err = p.CreateStock(ctx, e.ownerID, neg)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = p.CreateDividend(ctx, e.ownerID, &models.Dividend{StockID: 1})
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.ErrorIs(t, p.UpdateCurrentPrice(ctx, e.ownerID, 1, decimal.NewFromInt(-1)), common.ErrValidation)
	assert.ErrorIs(t, p.UpdateStock(ctx, e.ownerID, 1, models.StockUpdate{Shares: -2}), common.ErrValidation)
}

func TestPortfolio_UpdateAndSell(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	st, err := p.CreateStock(ctx, e.ownerID, sampleStock("A", ""))
	require.NoError(t, err)

	require.NoError(t, p.UpdateStock(ctx, e.ownerID, st.ID, models.StockUpdate{
		Shares: 20, TotalAmount: decimal.NewFromInt(2200), PurchasePrice: decimal.NewFromInt(110),
	}))
	require.NoError(t, p.UpdateStock(ctx, e.ownerID, st.ID, models.StockUpdate{
		Shares: 20, TotalAmount: decimal.NewFromInt(2200),
		Sale: &models.Sale{SellAmount: decimal.NewFromInt(2500), IsSold: true},
	}))
	require.NoError(t, p.UpdateCurrentPrice(ctx, e.ownerID, st.ID, decimal.NewFromInt(125)))

	list, err := p.ListStocks(ctx, e.ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, int64(20), got.Shares)
	assert.True(t, got.PurchasePrice.Equal(decimal.NewFromInt(110)))
	assert.True(t, got.SellAmount.Equal(decimal.NewFromInt(2500)))
	assert.True(t, got.IsSold)
	assert.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(125)))
}

func TestPortfolio_OwnershipIsEnforced(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	st, err := p.CreateStock(ctx, e.ownerID, sampleStock("A", ""))
	require.NoError(t, err)
	d, err := p.CreateDividend(ctx, e.ownerID, &models.Dividend{StockID: st.ID, DividendDate: "2024-01-15", Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	intruder := e.adminID
	assert.ErrorIs(t, p.UpdateStock(ctx, intruder, st.ID, models.StockUpdate{Shares: 1}), common.ErrorNotFound)
	assert.ErrorIs(t, p.UpdateCurrentPrice(ctx, intruder, st.ID, decimal.NewFromInt(1)), common.ErrorNotFound)
	assert.ErrorIs(t, p.DeleteStock(ctx, intruder, st.ID), common.ErrorNotFound)
	assert.ErrorIs(t, p.DeleteDividend(ctx, intruder, d.ID), common.ErrorNotFound)
	_, err = p.CreateDividend(ctx, intruder, &models.Dividend{StockID: st.ID, DividendDate: "2024-02-01", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, p.DeleteDividend(ctx, e.ownerID, d.ID))
	require.NoError(t, p.DeleteStock(ctx, e.ownerID, st.ID))
	list, err := p.ListStocks(ctx, e.ownerID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPortfolio_ExportImportRoundTrip(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	st, err := p.CreateStock(ctx, e.ownerID, sampleStock("A", "005930"))
	require.NoError(t, err)
	_, err = p.CreateDividend(ctx, e.ownerID, &models.Dividend{StockID: st.ID, DividendDate: "2024-01-15", Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)

	data, res, err := p.Export(ctx, snapshot.ForUser(e.ownerID))
	require.NoError(t, err)
	assert.Equal(t, snapshot.Result{Stocks: 1, Dividends: 1}, res)

	res, err = p.Import(ctx, e.adminID, data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stocks)
	assert.Equal(t, 1, res.Dividends)

	got, err := p.ListStocks(ctx, e.adminID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, st.ID, got[0].ID)
	assert.Equal(t, "A", got[0].StockName)
	require.Len(t, got[0].Dividends, 1)
	assert.Equal(t, e.adminID, got[0].Dividends[0].UserID)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SnapshotOperations.WithLabelValues("export", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SnapshotOperations.WithLabelValues("import", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SnapshotRows.WithLabelValues("import", "stocks")))
	assert.Equal(t, 0, p.imports.len())
}

func TestPortfolio_ImportFailureKeepsData(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	_, err := p.CreateStock(ctx, e.ownerID, sampleStock("A", ""))
	require.NoError(t, err)

	_, err = p.Import(ctx, e.ownerID, []byte("not a container"))
	require.ErrorIs(t, err, common.ErrContainerFormat)

	list, err := p.ListStocks(ctx, e.ownerID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SnapshotOperations.WithLabelValues("import", "error")))
}

func TestPortfolio_ConcurrentImportsForOneUser(t *testing.T) {
	e := newEnv(t)
	p := e.portfolio(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := p.CreateStock(ctx, e.ownerID, sampleStock(name, ""))
		require.NoError(t, err)
	}
	data, _, err := p.Export(ctx, snapshot.ForUser(e.ownerID))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Import(ctx, e.adminID, data)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	list, err := p.ListStocks(ctx, e.adminID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestUserLocks_SerializesAndCleansUp(t *testing.T) {
	l := newUserLocks()

	release := l.Lock(7)
	acquired := make(chan struct{})
	go func() {
		r := l.Lock(7)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	default:
	}

	other := l.Lock(8)
	other()

	release()
	<-acquired
	assert.Eventually(t, func() bool { return l.len() == 0 }, time.Second, time.Millisecond)
}
