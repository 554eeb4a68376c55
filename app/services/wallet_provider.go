// Package services provides external integrations: wallet provider, clipboard, event publishing and tracing
package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/config"
)

// WalletProvider is the external wallet capability. The first account is the active one;
// an empty slice means no account is connected.
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	SubscribeAccounts(ch chan<- []string) event.Subscription
}

// RPCWalletProvider talks to a wallet-backed JSON-RPC endpoint and polls eth_accounts
// to deliver account changes to subscribers.
type RPCWalletProvider struct {
	client   *rpc.Client
	interval time.Duration
	logger   *zap.Logger

	feed event.Feed

	mu      sync.Mutex
	last    []string
	polling bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// DialRPCWalletProvider connects to cfg.RPCURL
func DialRPCWalletProvider(ctx context.Context, cfg config.WalletConfig, logger *zap.Logger) (*RPCWalletProvider, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet rpc url is empty")
	}
	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet rpc %s: %w", cfg.RPCURL, err)
	}
	return NewRPCWalletProvider(client, cfg.PollInterval, logger), nil
}

func NewRPCWalletProvider(client *rpc.Client, interval time.Duration, logger *zap.Logger) *RPCWalletProvider {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCWalletProvider{client: client, interval: interval, logger: logger}
}

// Accounts calls eth_accounts
func (p *RPCWalletProvider) Accounts(ctx context.Context) ([]string, error) {
	return p.call(ctx, "eth_accounts")
}

// RequestAccounts calls eth_requestAccounts, which may prompt the wallet owner
func (p *RPCWalletProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return p.call(ctx, "eth_requestAccounts")
}

func (p *RPCWalletProvider) call(ctx context.Context, method string) ([]string, error) {
	var raw []string
	if err := p.client.CallContext(ctx, &raw, method); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	accounts := make([]string, 0, len(raw))
	for _, a := range raw {
		if !common.IsHexAddress(a) {
			p.logger.Warn("wallet returned invalid account", zap.String("method", method), zap.String("account", a))
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// SubscribeAccounts delivers the account list whenever it changes. Polling starts with the first subscriber.
func (p *RPCWalletProvider) SubscribeAccounts(ch chan<- []string) event.Subscription {
	sub := p.feed.Subscribe(ch)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.polling {
		ctx, cancel := context.WithCancel(context.Background())
		p.polling = true
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.poll(ctx)
	}
	return sub
}

func (p *RPCWalletProvider) poll(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *RPCWalletProvider) check(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	accounts, err := p.Accounts(reqCtx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("wallet account poll failed", zap.Error(err))
		}
		return
	}

	p.mu.Lock()
	changed := p.last == nil || !slices.Equal(p.last, accounts)
	p.last = accounts
	p.mu.Unlock()

	if changed {
		p.feed.Send(slices.Clone(accounts))
	}
}

// Close stops polling and closes the RPC client
func (p *RPCWalletProvider) Close() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.polling = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	p.client.Close()
}

// MockWalletProvider is an in-memory wallet for tests and demos
type MockWalletProvider struct {
	mu          sync.Mutex
	accounts    []string
	requestable []string
	RequestErr  error
	feed        event.Feed
	subscribers int
}

// NewMockWalletProvider starts with the given accounts connected; requestable is returned by RequestAccounts
func NewMockWalletProvider(accounts []string, requestable []string) *MockWalletProvider {
	return &MockWalletProvider{accounts: accounts, requestable: requestable}
}

func (m *MockWalletProvider) Accounts(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.accounts), nil
}

func (m *MockWalletProvider) RequestAccounts(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RequestErr != nil {
		return nil, m.RequestErr
	}
	m.accounts = slices.Clone(m.requestable)
	return slices.Clone(m.accounts), nil
}

func (m *MockWalletProvider) SubscribeAccounts(ch chan<- []string) event.Subscription {
	m.mu.Lock()
	m.subscribers++
	m.mu.Unlock()
	return m.feed.Subscribe(ch)
}

// SwitchAccounts replaces the connected accounts and notifies subscribers; it blocks until they receive
func (m *MockWalletProvider) SwitchAccounts(accounts ...string) int {
	m.mu.Lock()
	m.accounts = slices.Clone(accounts)
	m.mu.Unlock()
	return m.feed.Send(slices.Clone(accounts))
}

// Subscribers reports how many subscriptions were opened
func (m *MockWalletProvider) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribers
}
