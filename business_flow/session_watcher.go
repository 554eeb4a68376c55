package businessflow

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/services"
	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/repository"
	"github.com/amirphl/avax-blinks/utils"
)

// SessionState is the wallet connection state seen by the dashboard
type SessionState string

const (
	SessionNoWallet     SessionState = "no_wallet"
	SessionDisconnected SessionState = "disconnected"
	SessionConnected    SessionState = "connected"
)

// NoWalletMessage is shown when no wallet provider is available
const NoWalletMessage = "Please install a Web3 wallet"

// SessionSnapshot is the watcher's view of the active wallet
type SessionSnapshot struct {
	State   SessionState          `json:"state"`
	Session models.AccountSession `json:"session"`
	Records []models.LinkRecord   `json:"records"`
	Summary models.Summary        `json:"summary"`
}

// SessionWatcher follows the wallet provider's active account and keeps that
// account's records loaded
type SessionWatcher interface {
	Start(ctx context.Context) error
	Connect(ctx context.Context) error
	Refresh(ctx context.Context)
	Snapshot() SessionSnapshot
	Subscribe(ch chan<- SessionSnapshot) event.Subscription
	Close()
}

type SessionWatcherImpl struct {
	provider services.WalletProvider
	records  repository.LinkRecordRepository
	now      func() time.Time
	logger   *zap.Logger

	feed event.Feed

	// applyMu orders transitions: a Load and the set that follows it run as one step
	applyMu sync.Mutex
	mu      sync.RWMutex
	current SessionSnapshot

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	sub       event.Subscription
	done      chan struct{}
}

// NewSessionWatcher creates a watcher. A nil provider puts it in the NoWallet state.
func NewSessionWatcher(provider services.WalletProvider, records repository.LinkRecordRepository, now func() time.Time, logger *zap.Logger) SessionWatcher {
	if now == nil {
		now = utils.UTCNow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionWatcherImpl{
		provider: provider,
		records:  records,
		now:      now,
		logger:   logger.Named("session_watcher"),
		current:  SessionSnapshot{State: SessionDisconnected, Records: []models.LinkRecord{}},
	}
}

// Start runs the initial account query and subscribes to account changes.
// Calling it more than once has no effect.
func (w *SessionWatcherImpl) Start(ctx context.Context) error {
	w.startOnce.Do(func() {
		if w.provider == nil {
			w.applyMu.Lock()
			w.set(SessionSnapshot{State: SessionNoWallet, Records: []models.LinkRecord{}})
			w.applyMu.Unlock()
			return
		}

		accounts, err := w.provider.Accounts(ctx)
		if err != nil {
			w.logger.Warn("initial account query failed", zap.Error(err))
		}
		w.apply(ctx, accounts)

		loopCtx, cancel := context.WithCancel(context.Background())
		ch := make(chan []string, 8)
		w.mu.Lock()
		w.cancel = cancel
		w.sub = w.provider.SubscribeAccounts(ch)
		w.done = make(chan struct{})
		w.mu.Unlock()

		go w.loop(loopCtx, ch, w.sub, w.done)
	})
	return nil
}

func (w *SessionWatcherImpl) loop(ctx context.Context, ch <-chan []string, sub event.Subscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case accounts := <-ch:
			w.apply(ctx, accounts)
		case err, ok := <-sub.Err():
			if ok && err != nil {
				w.logger.Warn("account subscription failed", zap.Error(err))
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// Connect asks the provider for account access and applies the result
func (w *SessionWatcherImpl) Connect(ctx context.Context) error {
	if w.provider == nil {
		w.applyMu.Lock()
		w.set(SessionSnapshot{State: SessionNoWallet, Records: []models.LinkRecord{}})
		w.applyMu.Unlock()
		return NewBusinessError("WALLET_PROVIDER_ABSENT", NoWalletMessage, ErrWalletProviderAbsent)
	}
	w.applyMu.Lock()
	defer w.applyMu.Unlock()
	accounts, err := w.provider.RequestAccounts(ctx)
	if err != nil {
		return NewBusinessError("WALLET_CONNECT_FAILED", "Failed to connect wallet", err)
	}
	w.applyLocked(ctx, accounts)
	return nil
}

// Refresh reloads records for the connected address. It does nothing when
// no account is connected once earlier transitions have been applied.
func (w *SessionWatcherImpl) Refresh(ctx context.Context) {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.RLock()
	state, address := w.current.State, w.current.Session.Address
	w.mu.RUnlock()
	if state != SessionConnected {
		return
	}
	w.applyLocked(ctx, []string{address})
}

func (w *SessionWatcherImpl) Snapshot() SessionSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap := w.current
	snap.Records = slices.Clone(w.current.Records)
	return snap
}

// Subscribe delivers every new snapshot to ch. Subscribers must keep draining ch.
func (w *SessionWatcherImpl) Subscribe(ch chan<- SessionSnapshot) event.Subscription {
	return w.feed.Subscribe(ch)
}

// Close releases the provider subscription. Safe to call more than once.
func (w *SessionWatcherImpl) Close() {
	w.closeOnce.Do(func() {
		w.mu.RLock()
		cancel, sub, done := w.cancel, w.sub, w.done
		w.mu.RUnlock()
		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Unsubscribe()
		}
		if done != nil {
			<-done
		}
	})
}

func (w *SessionWatcherImpl) apply(ctx context.Context, accounts []string) {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()
	w.applyLocked(ctx, accounts)
}

func (w *SessionWatcherImpl) applyLocked(ctx context.Context, accounts []string) {
	if len(accounts) == 0 || accounts[0] == "" {
		w.set(SessionSnapshot{State: SessionDisconnected, Records: []models.LinkRecord{}})
		return
	}
	address := accounts[0]
	records := w.records.Load(ctx, address)
	w.set(SessionSnapshot{
		State:   SessionConnected,
		Session: models.AccountSession{Address: address},
		Records: records,
		Summary: Summarize(records, w.now()),
	})
}

// set must be called with applyMu held
func (w *SessionWatcherImpl) set(snap SessionSnapshot) {
	w.mu.Lock()
	w.current = snap
	w.mu.Unlock()

	out := snap
	out.Records = slices.Clone(snap.Records)
	w.feed.Send(out)
	w.logger.Debug("session updated", zap.String("state", string(snap.State)), zap.String("address", snap.Session.DisplayAddress()))
}
