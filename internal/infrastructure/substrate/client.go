// Package substrate reads staking account state from the relay side of the
// chain through storage subscriptions.
package substrate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
)

// ErrNotConnected is returned when a call is made before Connect.
var ErrNotConnected = errors.New("substrate client not connected")

// StorageSubscription is a live storage subscription.
type StorageSubscription interface {
	Chan() <-chan types.StorageChangeSet
	Err() <-chan error
	Unsubscribe()
}

// StorageSource is the subset of the state RPC used by Client.
type StorageSource interface {
	SubscribeStorage(keys []types.StorageKey) (StorageSubscription, error)
	GetStorageLatest(key types.StorageKey, target any) (bool, error)
}

// rpcSource adapts gsrpc's state RPC to StorageSource.
type rpcSource struct {
	api *gsrpc.SubstrateAPI
}

func (s rpcSource) SubscribeStorage(keys []types.StorageKey) (StorageSubscription, error) {
	sub, err := s.api.RPC.State.SubscribeStorageRaw(keys)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s rpcSource) GetStorageLatest(key types.StorageKey, target any) (bool, error) {
	return s.api.RPC.State.GetStorageLatest(key, target)
}

// Client implements ports.AccountSubscriber over a substrate node.
type Client struct {
	url    string
	logger log.Logger

	mu     sync.RWMutex
	source StorageSource
	api    *gsrpc.SubstrateAPI

	dial     func(url string) (*gsrpc.SubstrateAPI, error)
	closeAPI func(api *gsrpc.SubstrateAPI)
}

// Ensure Client implements ports.AccountSubscriber.
var _ ports.AccountSubscriber = (*Client)(nil)

// NewClient creates a client for the websocket endpoint url.
func NewClient(url string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		url:      url,
		logger:   logger.With("module", "substrate"),
		dial:     gsrpc.NewSubstrateAPI,
		closeAPI: func(api *gsrpc.SubstrateAPI) { api.Client.Close() },
	}
}

// NewClientWithSource wraps an existing storage source.
func NewClientWithSource(source StorageSource, logger log.Logger) *Client {
	c := NewClient("", logger)
	c.source = source
	return c
}

// Connect dials the node.
func (c *Client) Connect(ctx context.Context) error {
	type result struct {
		api *gsrpc.SubstrateAPI
		err error
	}
	done := make(chan result, 1)
	go func() {
		api, err := c.dial(c.url)
		done <- result{api, err}
	}()

	select {
	case <-ctx.Done():
		// close the connection if the dial still succeeds
		go func() {
			if r := <-done; r.err == nil && r.api != nil {
				c.closeAPI(r.api)
			}
		}()
		return fmt.Errorf("failed to connect to %s: %w", c.url, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to connect to %s: %w", c.url, r.err)
		}
		c.mu.Lock()
		c.source = rpcSource{api: r.api}
		c.api = r.api
		c.mu.Unlock()
	}
	c.logger.Debug("connected", "url", c.url)
	return nil
}

func (c *Client) get() (StorageSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.source == nil {
		return nil, ErrNotConnected
	}
	return c.source, nil
}

// SubscribeAccount subscribes to the staking-related storage of address and
// calls handler with the joined state after every change set. The handler
// runs on the subscription goroutine.
func (c *Client) SubscribeAccount(ctx context.Context, address string, handler func(ports.AccountState)) (func(), error) {
	src, err := c.get()
	if err != nil {
		return nil, err
	}
	keys, err := AccountKeys(address)
	if err != nil {
		return nil, err
	}

	sub, err := src.SubscribeStorage(keys)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to storage: %w", err)
	}

	quit := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(quit)
			sub.Unsubscribe()
		})
	}

	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[keyHex(k)] = i
	}

	go func() {
		entries := make([]entry, len(keys))
		for {
			select {
			case <-ctx.Done():
				unsubscribe()
				return
			case <-quit:
				return
			case err, ok := <-sub.Err():
				if ok && err != nil {
					c.logger.Error("account subscription failed", "address", address, "error", err)
				}
				return
			case set, ok := <-sub.Chan():
				if !ok {
					return
				}
				if !applyChanges(entries, index, set) {
					continue
				}
				st, err := decodeAccountState(entries)
				if err != nil {
					c.logger.Error("failed to decode account state", "address", address, "error", err)
					continue
				}
				select {
				case <-quit:
					return
				default:
				}
				handler(st)
			}
		}
	}()

	return unsubscribe, nil
}

// applyChanges records the values in set and reports whether any tracked
// key changed.
func applyChanges(entries []entry, index map[string]int, set types.StorageChangeSet) bool {
	changed := false
	for _, ch := range set.Changes {
		i, ok := index[keyHex(ch.StorageKey)]
		if !ok {
			continue
		}
		entries[i].seen = true
		if ch.HasStorageData {
			entries[i].data = append([]byte(nil), ch.StorageData...)
		} else {
			entries[i].data = nil
		}
		changed = true
	}
	return changed
}

// ActiveEra returns the index of the active era, or false if none is set.
func (c *Client) ActiveEra(ctx context.Context) (uint32, bool, error) {
	src, err := c.get()
	if err != nil {
		return 0, false, err
	}

	var info activeEraInfo
	ok, err := src.GetStorageLatest(StakingActiveEra.Key(nil), &info)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query %s: %w", StakingActiveEra, err)
	}
	if !ok {
		return 0, false, nil
	}
	return uint32(info.Index), true, nil
}

// Close drops the connection. Active subscriptions end with it.
func (c *Client) Close() error {
	c.mu.Lock()
	api := c.api
	c.source = nil
	c.api = nil
	c.mu.Unlock()

	if api != nil {
		c.closeAPI(api)
	}
	return nil
}
