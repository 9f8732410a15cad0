package queue

import (
	"encoding/json"
	"testing"
)

func decodeOrder(t *testing.T, raw string) Order {
	t.Helper()
	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatalf("unmarshal order: %v", err)
	}
	return o
}

func TestIsOrderPaid(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want bool
	}{
		{"no payment info defaults to paid", `{"id":"1"}`, true},
		{"isPaid true", `{"isPaid":true}`, true},
		{"isPaid string false", `{"isPaid":"false"}`, false},
		{"paid numeric zero", `{"paid":0}`, false},
		{"hasPaid string one", `{"hasPaid":"1"}`, true},
		{"nested payment paid", `{"payment":{"paid":1}}`, true},
		{"nested payment hasPaid false", `{"payment":{"hasPaid":false}}`, false},
		{"unrecognised boolean falls through", `{"isPaid":"yes","paymentStatus":"failed"}`, false},
		{"payment status paid", `{"paymentStatus":"PAID"}`, true},
		{"payment status failed", `{"payment_status":"failed"}`, false},
		{"nested payment status", `{"payment":{"status":"declined"}}`, false},
		{"nested paymentStatus", `{"payment":{"paymentStatus":"succeeded"}}`, true},
		{"unknown status defaults to paid", `{"paymentStatus":"processing"}`, true},
		{"string payment ignored", `{"payment":"cash"}`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOrderPaid(decodeOrder(t, tc.raw)); got != tc.want {
				t.Fatalf("IsOrderPaid(%s) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestIsOrderPaidBooleanWinsOverStatus(t *testing.T) {
	order := decodeOrder(t, `{"isPaid":false,"paymentStatus":"paid"}`)
	if IsOrderPaid(order) {
		t.Fatal("boolean field must win over payment status")
	}

	order = decodeOrder(t, `{"payment":{"isPaid":"true"},"paymentStatus":"unpaid"}`)
	if !IsOrderPaid(order) {
		t.Fatal("nested boolean field must win over payment status")
	}
}
