package gateway

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestSimulator(outcome Outcome) *Simulator {
	return NewSimulator(SimulatorConfig{
		Outcome:  outcome,
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
	})
}

func collectSettlements(sim *Simulator) (*[]Settlement, *sync.Mutex) {
	var mu sync.Mutex
	var got []Settlement
	sim.Bind(func(s Settlement) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	})
	return &got, &mu
}

func TestSimulatorRejectsBadRequests(t *testing.T) {
	sim := newTestSimulator(OutcomeSucceed)
	ctx := context.Background()

	if _, err := sim.Initiate(ctx, InitiateRequest{AmountMinor: 1000}); err == nil {
		t.Error("expected error for missing transaction code")
	}
	if _, err := sim.Initiate(ctx, InitiateRequest{TransactionCode: "TXN-1-0001", AmountMinor: 0}); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestSimulatorDeliversSuccess(t *testing.T) {
	sim := newTestSimulator(OutcomeSucceed)
	got, mu := collectSettlements(sim)

	ack, err := sim.Initiate(context.Background(), InitiateRequest{
		TransactionCode: "TXN-1-0001",
		AmountMinor:     99000,
		Currency:        "VND",
		Method:          "card",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if ack.GatewayTxnID == "" || ack.PaymentURL == "" || ack.QRPayload == "" {
		t.Errorf("incomplete ack: %+v", ack)
	}

	sim.Wait()
	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("got %d settlements, want 1", len(*got))
	}
	s := (*got)[0]
	if s.TransactionCode != "TXN-1-0001" || s.Status != "success" || s.GatewayTxnID != ack.GatewayTxnID {
		t.Errorf("unexpected settlement: %+v", s)
	}
}

func TestSimulatorDeliversFailure(t *testing.T) {
	sim := newTestSimulator(OutcomeFail)
	got, mu := collectSettlements(sim)

	if _, err := sim.Initiate(context.Background(), InitiateRequest{
		TransactionCode: "TXN-1-0002",
		AmountMinor:     50000,
	}); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	sim.Wait()
	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("got %d settlements, want 1", len(*got))
	}
	s := (*got)[0]
	if s.Status != "failed" || s.FailureReason == "" {
		t.Errorf("unexpected settlement: %+v", s)
	}
}

func TestSimulatorUnboundDropsSettlement(t *testing.T) {
	sim := newTestSimulator(OutcomeSucceed)
	if _, err := sim.Initiate(context.Background(), InitiateRequest{
		TransactionCode: "TXN-1-0003",
		AmountMinor:     1000,
	}); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	// Must not panic with no callback bound.
	sim.Wait()
}
