package shell_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/seshat/dbschema/shell"
)

// hostShell is a fake host-owned connection that records calls and detects
// overlapping use.
type hostShell struct {
	inFlight atomic.Int32
	overlap  atomic.Bool
	queries  []string
	commands []string
	mu       sync.Mutex
}

func (h *hostShell) enter() {
	if h.inFlight.Add(1) > 1 {
		h.overlap.Store(true)
	}
}

func (h *hostShell) leave() {
	h.inFlight.Add(-1)
}

func (h *hostShell) Query(_ context.Context, query string, _ []string) (shell.ResultSet, error) {
	h.enter()
	defer h.leave()
	h.mu.Lock()
	h.queries = append(h.queries, query)
	h.mu.Unlock()
	return shell.NewResult([]string{"v"}, [][]any{{int64(1)}}), nil
}

func (h *hostShell) RawCmd(_ context.Context, query string) error {
	h.enter()
	defer h.leave()
	h.mu.Lock()
	h.commands = append(h.commands, query)
	h.mu.Unlock()
	return nil
}

func TestBridgedShell_ForwardsCalls(t *testing.T) {
	c := qt.New(t)

	host := &hostShell{}
	bridged := shell.NewBridgedShell(host)
	defer bridged.Close()

	rs, err := bridged.Query(context.Background(), "SELECT 1", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(rs.Len(), qt.Equals, 1)

	err = bridged.RawCmd(context.Background(), "CREATE TABLE a (id INTEGER)")
	c.Assert(err, qt.IsNil)

	c.Assert(host.queries, qt.DeepEquals, []string{"SELECT 1"})
	c.Assert(host.commands, qt.DeepEquals, []string{"CREATE TABLE a (id INTEGER)"})
}

func TestBridgedShell_SingleInFlight(t *testing.T) {
	c := qt.New(t)

	host := &hostShell{}
	bridged := shell.NewBridgedShell(host)
	defer bridged.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := bridged.Query(context.Background(), "SELECT 1", nil)
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	c.Assert(host.overlap.Load(), qt.IsFalse, qt.Commentf("host saw overlapping calls"))
	c.Assert(len(host.queries), qt.Equals, 16*50)
}

func TestBridgedShell_CloseIsIdempotent(t *testing.T) {
	bridged := shell.NewBridgedShell(&hostShell{})
	bridged.Close()
	bridged.Close()
}
