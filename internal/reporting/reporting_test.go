package reporting_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/payment-dispatch/internal/reporting"
)

func TestSummarize_Empty(t *testing.T) {
	summary := reporting.Summarize(nil)
	assert.Zero(t, summary.TotalCharges)
	assert.Empty(t, summary.AmountByCurrency)
	assert.Empty(t, summary.ErrorBreakdown)
}

func TestSummarize(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []reporting.ChargeLog{
		{Timestamp: base, Provider: "stripe", Amount: 100, Currency: "USD", Status: "SUCCEEDED"},
		{Timestamp: base.Add(time.Minute), Provider: "stripe", Amount: 250, Currency: "USD", Status: "SUCCEEDED"},
		{Timestamp: base.Add(2 * time.Minute), Provider: "paypal", Amount: 900, Currency: "EUR", Status: "SUCCEEDED"},
		{Timestamp: base.Add(3 * time.Minute), Provider: "stripe", Amount: 50, Currency: "USD", Status: "DECLINED", ErrorCode: "card_declined"},
		{Timestamp: base.Add(4 * time.Minute), Provider: "braintree", Amount: 75, Currency: "USD", Status: "FAILED", ErrorCode: "TIMEOUT"},
		{Timestamp: base.Add(5 * time.Minute), Provider: "stripe", Amount: 75, Currency: "USD", Status: "REJECTED", ErrorCode: "DUPLICATE_REQUEST"},
	}

	summary := reporting.Summarize(entries)

	assert.Equal(t, 6, summary.TotalCharges)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Declined)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Rejected)

	// only succeeded charges settle
	assert.Equal(t, int64(350), summary.AmountByCurrency["USD"])
	assert.Equal(t, int64(900), summary.AmountByCurrency["EUR"])

	assert.Equal(t, 1, summary.ErrorBreakdown["card_declined"])
	assert.Equal(t, 1, summary.ErrorBreakdown["TIMEOUT"])
	assert.Equal(t, 4, summary.ProviderUsage["stripe"])

	assert.Equal(t, base, summary.From)
	assert.Equal(t, base.Add(5*time.Minute), summary.To)
}

func TestRecorder_ConcurrentAppend(t *testing.T) {
	rec := reporting.NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Append(reporting.ChargeLog{Provider: "stripe", Status: "SUCCEEDED", Amount: 1, Currency: "USD"})
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Entries(), 50)
	assert.Equal(t, 50, reporting.Summarize(rec.Entries()).Succeeded)
}
