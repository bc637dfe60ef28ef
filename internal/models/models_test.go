package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_Helpers(t *testing.T) {
	now := time.Now()
	p := Payload{
		"int64":  int64(123),
		"int":    123,
		"float":  123.45,
		"string": "hello",
		"time":   "2025-01-01T10:00:00Z",
		"stamp":  "2025-01-01 10:00:00",
		"date":   "2025-01-01",
		"time_t": now,
	}

	t.Run("NilPayload", func(t *testing.T) {
		var nilPayload Payload
		assert.Equal(t, int64(0), nilPayload.GetInt64("any"))
		assert.Equal(t, 0.0, nilPayload.GetFloat64("any"))
		assert.Equal(t, "", nilPayload.GetString("any"))
		assert.True(t, nilPayload.GetTime("any").IsZero())
	})

	t.Run("GetInt64", func(t *testing.T) {
		assert.Equal(t, int64(123), p.GetInt64("int64"))
		assert.Equal(t, int64(123), p.GetInt64("int"))
		assert.Equal(t, int64(123), p.GetInt64("float"))
		assert.Equal(t, int64(0), p.GetInt64("string"))
	})

	t.Run("GetFloat64", func(t *testing.T) {
		assert.Equal(t, 123.45, p.GetFloat64("float"))
		assert.Equal(t, 123.0, p.GetFloat64("int"))
		assert.Equal(t, 0.0, p.GetFloat64("missing"))
	})

	t.Run("GetString", func(t *testing.T) {
		assert.Equal(t, "hello", p.GetString("string"))
		assert.Equal(t, "", p.GetString("int"))
	})

	t.Run("GetTime", func(t *testing.T) {
		assert.Equal(t, 2025, p.GetTime("time").Year())
		assert.Equal(t, 10, p.GetTime("stamp").Hour())
		assert.Equal(t, time.January, p.GetTime("date").Month())
		assert.True(t, now.Equal(p.GetTime("time_t")))
		assert.True(t, p.GetTime("string").IsZero())
	})

	t.Run("JSONRoundTripNumbers", func(t *testing.T) {
		raw, err := json.Marshal(Payload{"amount": 796})
		require.NoError(t, err)
		var back Payload
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, int64(796), back.GetInt64("amount"))
	})

	t.Run("Merge", func(t *testing.T) {
		merged := Payload{"a": 1, "b": 2}.Merge(Payload{"b": 3})
		assert.Equal(t, 1, merged["a"])
		assert.Equal(t, 3, merged["b"])
	})
}

func TestBookingSettled(t *testing.T) {
	tests := []struct {
		status, payment string
		want            bool
	}{
		{StatusPending, PaymentPending, false},
		{StatusConfirmed, PaymentPaid, true},
		{StatusConfirmed, PaymentOverpaid, true},
		{StatusConfirmed, PaymentPending, false},
		{StatusPendingPayment, PaymentUnderpaid, false},
		{StatusFailed, PaymentFailed, false},
		{StatusRefunded, PaymentRefunded, true},
	}
	for _, tt := range tests {
		b := &Booking{Status: tt.status, PaymentStatus: tt.payment}
		assert.Equal(t, tt.want, b.Settled(), "%s/%s", tt.status, tt.payment)
	}
}

func TestBookingEmailData(t *testing.T) {
	paid := 500.0
	b := &Booking{ID: "abc12345", Name: "Ama", PaidAmount: &paid}
	data := b.EmailData()
	assert.Equal(t, "abc12345", data.GetString("id"))
	assert.Equal(t, 500.0, data.GetFloat64("paid_amount"))
	_, hasRefund := data["refund_amount"]
	assert.False(t, hasRefund)
}

func TestPaymentIsTerminal(t *testing.T) {
	assert.False(t, (&Payment{Status: TransactionPending}).IsTerminal())
	assert.True(t, (&Payment{Status: TransactionSuccess}).IsTerminal())
	assert.True(t, (&Payment{Status: TransactionFailed}).IsTerminal())
}

func TestRoomRateCustomPricing(t *testing.T) {
	assert.True(t, RoomRate{Type: "full-house"}.CustomPricing())
	assert.False(t, RoomRate{Type: "executive", NightlyRate: 299}.CustomPricing())
}
