// Package di wires a stakectl session: configuration, chain clients, the
// event bus and the services built on top of them.
package di

import (
	"context"
	"sync"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/event"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/balances"
	"github.com/altuslabsxyz/stakekit/internal/config"
	"github.com/altuslabsxyz/stakekit/internal/events"
	"github.com/altuslabsxyz/stakekit/internal/fee"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/interactive"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/notify"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/wallet"
	"github.com/altuslabsxyz/stakekit/internal/output"
	"github.com/altuslabsxyz/stakekit/internal/submit"
	"github.com/altuslabsxyz/stakekit/internal/syncstatus"
	"github.com/altuslabsxyz/stakekit/internal/txmeta"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// AccountSource is the relay-side client: account subscriptions plus the
// active era.
type AccountSource interface {
	ports.AccountSubscriber
	ports.EraSource
}

// Container holds the dependencies of one CLI session. Chain connections
// are opened on first use and released by Close.
type Container struct {
	mu sync.Mutex

	cfg     *config.Config
	logger  log.Logger
	out     *output.Logger
	factory *InfrastructureFactory

	chain     ports.ChainClient
	accounts  AccountSource
	signer    ports.Signer
	confirmer ports.Confirmer
	notifier  ports.Notifier

	bus          *events.Bus
	tracker      *syncstatus.Tracker
	encoder      *staking.Encoder
	estimator    *fee.Estimator
	synchronizer *balances.Synchronizer
	meta         *txmeta.Store

	subs    []event.Subscription
	closers []func()
}

// Option configures the container.
type Option func(*Container)

// WithLogger sets the structured logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithOutput sets the console logger.
func WithOutput(out *output.Logger) Option {
	return func(c *Container) {
		c.out = out
	}
}

// WithChainClient injects the execution-layer client.
func WithChainClient(client ports.ChainClient) Option {
	return func(c *Container) {
		c.chain = client
	}
}

// WithAccountSource injects the relay-side client.
func WithAccountSource(source AccountSource) Option {
	return func(c *Container) {
		c.accounts = source
	}
}

// WithSigner sets the wallet.
func WithSigner(signer ports.Signer) Option {
	return func(c *Container) {
		c.signer = signer
	}
}

// WithConfirmer sets the approval prompt.
func WithConfirmer(confirmer ports.Confirmer) Option {
	return func(c *Container) {
		c.confirmer = confirmer
	}
}

// WithNotifier replaces the default console and bus notifiers.
func WithNotifier(notifier ports.Notifier) Option {
	return func(c *Container) {
		c.notifier = notifier
	}
}

// New creates a container for cfg.
func New(cfg *config.Config, opts ...Option) *Container {
	c := &Container{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewNopLogger()
	}
	if c.out == nil {
		c.out = output.NewLogger()
	}
	if c.confirmer == nil {
		c.confirmer = interactive.NewConfirmer(false)
	}
	c.factory = NewInfrastructureFactory(cfg, c.logger)
	c.bus = events.NewBus()
	c.tracker = syncstatus.NewTracker(c.bus)
	if c.notifier == nil {
		c.notifier = notify.Multi{
			notify.NewConsole(c.out, notify.DefaultLevels),
			notify.NewFeed(c.bus),
		}
	}
	return c
}

// Config returns the session configuration.
func (c *Container) Config() *config.Config { return c.cfg }

// Logger returns the structured logger.
func (c *Container) Logger() log.Logger { return c.logger }

// Output returns the console logger.
func (c *Container) Output() *output.Logger { return c.out }

// Bus returns the session event bus.
func (c *Container) Bus() *events.Bus { return c.bus }

// Tracker returns the sync status tracker.
func (c *Container) Tracker() *syncstatus.Tracker { return c.tracker }

// Signer returns the wallet, or nil when none is configured.
func (c *Container) Signer() ports.Signer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signer
}

// SetSigner replaces the wallet.
func (c *Container) SetSigner(signer ports.Signer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signer = signer
}

// Confirmer returns the approval prompt.
func (c *Container) Confirmer() ports.Confirmer { return c.confirmer }

// Notifier returns the notification sink.
func (c *Container) Notifier() ports.Notifier { return c.notifier }

// Encoder returns the staking encoder.
func (c *Container) Encoder() (*staking.Encoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.encoder != nil {
		return c.encoder, nil
	}
	enc, err := c.factory.Encoder()
	if err != nil {
		return nil, err
	}
	c.encoder = enc
	return enc, nil
}

// Chain returns the execution-layer client, connecting on first use.
func (c *Container) Chain(ctx context.Context) (ports.ChainClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainLocked(ctx)
}

func (c *Container) chainLocked(ctx context.Context) (ports.ChainClient, error) {
	if c.chain != nil {
		return c.chain, nil
	}
	client, err := c.factory.ConnectEVM(ctx)
	if err != nil {
		return nil, err
	}
	c.chain = client
	c.closers = append(c.closers, client.Close)
	return client, nil
}

// Accounts returns the relay-side client, connecting on first use.
func (c *Container) Accounts(ctx context.Context) (AccountSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountsLocked(ctx)
}

func (c *Container) accountsLocked(ctx context.Context) (AccountSource, error) {
	if c.accounts != nil {
		return c.accounts, nil
	}
	client, err := c.factory.ConnectSubstrate(ctx)
	if err != nil {
		return nil, err
	}
	c.accounts = client
	c.closers = append(c.closers, func() { _ = client.Close() })
	return client, nil
}

// Synchronizer returns the balances synchronizer.
func (c *Container) Synchronizer(ctx context.Context) (*balances.Synchronizer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.synchronizer != nil {
		return c.synchronizer, nil
	}
	accounts, err := c.accountsLocked(ctx)
	if err != nil {
		return nil, err
	}
	c.synchronizer = balances.NewSynchronizer(accounts, c.bus, c.tracker, c.logger)
	c.closers = append(c.closers, c.synchronizer.UnsubscribeAll)
	return c.synchronizer, nil
}

// TxMeta returns the session's transaction metadata store. It follows
// balance events from the bus, and reads the synchronizer directly when
// one was created first.
func (c *Container) TxMeta() (*txmeta.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.meta != nil {
		return c.meta, nil
	}
	ed, err := c.cfg.ExistentialDeposit()
	if err != nil {
		return nil, err
	}
	var source txmeta.BalanceSource
	if c.synchronizer != nil {
		source = c.synchronizer
	}
	c.meta = txmeta.NewStore(ed, source)
	c.subs = append(c.subs, c.meta.Watch(c.bus))
	return c.meta, nil
}

// Estimator returns the fee estimator.
func (c *Container) Estimator(ctx context.Context) (*fee.Estimator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.estimator != nil {
		return c.estimator, nil
	}
	chain, err := c.chainLocked(ctx)
	if err != nil {
		return nil, err
	}
	c.estimator = fee.NewEstimator(chain, c.logger)
	return c.estimator, nil
}

// Controller creates a submission controller for one transaction slot.
func (c *Container) Controller(ctx context.Context, opts submit.Options) (*submit.Controller, error) {
	meta, err := c.TxMeta()
	if err != nil {
		return nil, err
	}
	estimator, err := c.Estimator(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := c.Chain(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Confirmations == 0 {
		opts.Confirmations = c.cfg.Staking.Confirmations
	}
	signer := c.Signer()
	if signer == nil {
		signer = wallet.WatchOnly{}
	}
	return submit.NewController(meta, estimator, chain, signer, c.notifier, c.logger, opts), nil
}

// Close releases subscriptions and connections in reverse order of creation.
func (c *Container) Close() {
	c.mu.Lock()
	subs, closers := c.subs, c.closers
	c.subs, c.closers = nil, nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	c.bus.Close()
}
