package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nftsalesgo/internal/sales"
)

var ErrUnknownEvent = errors.New("unknown_event")

// selfValidating request bodies are checked after decoding, before the
// handler sees them.
type selfValidating interface {
	Validate() error
}

type route func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error)

// Router maps sale frames ("sales/bid", "sales/buy", ...) to typed handlers
// and turns each result into an ack or error frame.
type Router struct {
	mu      sync.RWMutex
	routes  map[string]route
	timeout time.Duration
}

// NewRouter bounds every handler call by timeout.
func NewRouter(timeout time.Duration) *Router {
	return &Router{routes: make(map[string]route), timeout: timeout}
}

// Register binds a sale frame to h. The body is decoded into Req and
// validated before h runs.
func Register[Req any, Res any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) (Res, error),
) {
	if !strings.HasPrefix(event, EventPrefix) || event == EventPrefix {
		panic(fmt.Sprintf("ws router: event %q is not a sale frame", event))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error) {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %v", sales.ErrInvalidRequest, event, err)
			}
		}
		if v, ok := any(&req).(selfValidating); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return h(ctx, c, req)
	}
}

func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) (any, error) {
	r.mu.RLock()
	h, ok := r.routes[env.Event]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return h(ctx, c, env.Body)
}

// Serve handles one inbound frame for the sale room behind c and returns the
// frame to send back.
func (r *Router) Serve(ctx context.Context, c *ConnContext, env Envelope) Reply {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.dispatch(ctx, c, env)
	if err != nil {
		return Reply{Event: EventError, Body: ErrorBody{Error: err.Error()}}
	}
	return Reply{Event: env.Event + AckSuffix, Body: res}
}
