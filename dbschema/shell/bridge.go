package shell

import (
	"context"
	"sync"
)

// bridgeRequest is one call forwarded to the owning host. A nil Params slice
// distinguishes a raw command from a query.
type bridgeRequest struct {
	ctx    context.Context
	query  string
	params []string
	isCmd  bool
}

type bridgeResponse struct {
	result ResultSet
	err    error
}

// BridgedShell forwards Shell calls to a connection owned elsewhere, through
// a request/response channel pair served by a single goroutine spawned once
// for the shell's lifetime. A mutex serializes callers, so at most one call
// is ever in flight no matter how many goroutines share the shell.
//
// The bridge goroutine has no explicit shutdown signal besides Close, which
// closes the request channel.
type BridgedShell struct {
	mu   sync.Mutex
	req  chan bridgeRequest
	resp chan bridgeResponse

	closeOnce sync.Once
}

// NewBridgedShell starts the bridge goroutine over the given host connection.
func NewBridgedShell(host Shell) *BridgedShell {
	b := &BridgedShell{
		req:  make(chan bridgeRequest),
		resp: make(chan bridgeResponse),
	}

	go func() {
		for r := range b.req {
			if r.isCmd {
				b.resp <- bridgeResponse{err: host.RawCmd(r.ctx, r.query)}
				continue
			}
			rs, err := host.Query(r.ctx, r.query, r.params)
			b.resp <- bridgeResponse{result: rs, err: err}
		}
	}()

	return b
}

func (b *BridgedShell) Query(ctx context.Context, query string, params []string) (ResultSet, error) {
	if params == nil {
		params = []string{}
	}
	resp := b.roundTrip(bridgeRequest{ctx: ctx, query: query, params: params})
	return resp.result, resp.err
}

func (b *BridgedShell) RawCmd(ctx context.Context, query string) error {
	return b.roundTrip(bridgeRequest{ctx: ctx, query: query, isCmd: true}).err
}

func (b *BridgedShell) roundTrip(r bridgeRequest) bridgeResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.req <- r
	return <-b.resp
}

// Close stops the bridge goroutine. The shell must not be used afterwards.
func (b *BridgedShell) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		close(b.req)
	})
}
