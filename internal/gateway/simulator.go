package gateway

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// Outcome fixes how the simulator resolves settlements.
type Outcome string

const (
	OutcomeSucceed Outcome = "succeed"
	OutcomeFail    Outcome = "fail"
	OutcomeRandom  Outcome = "random"
)

type SimulatorConfig struct {
	Outcome  Outcome
	MinDelay time.Duration
	MaxDelay time.Duration
	// BaseURL shapes the fake redirect link returned in the Ack.
	BaseURL string
}

// Simulator acknowledges immediately and resolves each settlement on its own
// goroutine after a bounded delay, like a provider calling our webhook back.
type Simulator struct {
	cfg    SimulatorConfig
	settle SettleFunc

	mu  sync.Mutex
	rng *rand.Rand
	wg  sync.WaitGroup
}

func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Outcome == "" {
		cfg.Outcome = OutcomeSucceed
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://pay.simulated.local"
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Bind registers the settlement callback. Done after construction because the
// settlement processor itself depends on the gateway.
func (s *Simulator) Bind(settle SettleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle = settle
}

func (s *Simulator) Initiate(ctx context.Context, req InitiateRequest) (*Ack, error) {
	if req.TransactionCode == "" {
		return nil, fmt.Errorf("simulator: transaction code is required")
	}
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("simulator: amount must be positive, got %d", req.AmountMinor)
	}

	s.mu.Lock()
	gatewayTxnID := fmt.Sprintf("SIM-%d-%04d", time.Now().UnixNano(), s.rng.Intn(10000))
	delay := s.cfg.MinDelay
	if spread := s.cfg.MaxDelay - s.cfg.MinDelay; spread > 0 {
		delay += time.Duration(s.rng.Int63n(int64(spread)))
	}
	succeed := s.cfg.Outcome == OutcomeSucceed ||
		(s.cfg.Outcome == OutcomeRandom && s.rng.Intn(100) < 80)
	s.mu.Unlock()

	ack := &Ack{
		GatewayTxnID: gatewayTxnID,
		PaymentURL:   fmt.Sprintf("%s/checkout/%s", s.cfg.BaseURL, req.TransactionCode),
		QRPayload:    fmt.Sprintf("sim://pay?code=%s&amount=%d", req.TransactionCode, req.AmountMinor),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		time.Sleep(delay)

		settlement := Settlement{
			TransactionCode: req.TransactionCode,
			GatewayTxnID:    gatewayTxnID,
			RawPayload: map[string]interface{}{
				"provider": "simulator",
				"amount":   req.AmountMinor,
				"currency": req.Currency,
				"method":   req.Method,
			},
		}
		if succeed {
			settlement.Status = "success"
		} else {
			settlement.Status = "failed"
			settlement.FailureReason = "card declined by simulator"
		}

		s.mu.Lock()
		settle := s.settle
		s.mu.Unlock()
		if settle == nil {
			log.Printf("simulator: no settle callback registered, dropping settlement for %s", req.TransactionCode)
			return
		}
		settle(settlement)
	}()

	return ack, nil
}

// Wait blocks until every in-flight settlement has been delivered. Test hook.
func (s *Simulator) Wait() { s.wg.Wait() }
