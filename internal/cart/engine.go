package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/dwayee"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/metrics"
)

const DefaultMaxQuantity = 10

const (
	opReload = "reload"
	opAdd    = "add_item"
	opUpdate = "update_quantity"
	opRemove = "remove_item"
	opClear  = "clear"
	opReset  = "reset_local"
)

// RemoteCart is the slice of the Dwayee API the engine mirrors.
type RemoteCart interface {
	GetCart(ctx context.Context, token string) (*dwayee.CartPayload, error)
	AddToCart(ctx context.Context, token, medicationID string, quantity int) error
	UpdateCartItem(ctx context.Context, token, medicationID string, quantity int) error
	RemoveCartItem(ctx context.Context, token, medicationID string) error
	DeleteCart(ctx context.Context, token string) (*dwayee.DeleteCartResult, error)
}

type EngineOptions struct {
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
	// MaxQuantity caps the units of one medication; zero means DefaultMaxQuantity.
	MaxQuantity int
}

// Engine keeps a local snapshot of the shopper's server-side cart.
//
// Every operation that talks to the API runs through a single-slot queue, so at
// most one is in flight. ResetLocal skips the queue; results of calls that were
// in flight when it ran are dropped, and operations still waiting for the queue
// are abandoned before they reach the API.
type Engine struct {
	remote  RemoteCart
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	maxQty  int

	queue chan struct{}

	// commitMu orders commits and their notifications.
	commitMu sync.Mutex

	mu        sync.Mutex
	snap      Snapshot
	epoch     uint64
	listeners map[uint64]func(Snapshot)
	nextID    uint64

	// queued, when set, runs after an operation has read the epoch and before it
	// waits for the queue.
	queued func()
}

var errStale = errors.New("cart was reset while the operation was queued")

func NewEngine(remote RemoteCart, opts EngineOptions) (*Engine, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote cart is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = DefaultMaxQuantity
	}
	return &Engine{
		remote:    remote,
		logg:      opts.Logger,
		metrics:   opts.Metrics,
		maxQty:    opts.MaxQuantity,
		queue:     make(chan struct{}, 1),
		snap:      Snapshot{Lines: []Line{}},
		listeners: make(map[uint64]func(Snapshot)),
	}, nil
}

// MaxQuantity is the per-medication cap enforced before any call.
func (e *Engine) MaxQuantity() int {
	return e.maxQty
}

// Snapshot returns a copy of the current cart.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.clone()
}

// Subscribe registers fn to receive every committed snapshot, in commit order.
// fn runs outside the engine lock but must not call ResetLocal.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Reload replaces the snapshot with the server cart. Without a session it does nothing.
// On failure the previous snapshot is kept.
func (e *Engine) Reload(ctx context.Context, sess *session.Session) (err error) {
	if !sess.Valid() {
		return nil
	}
	ctx, done := e.begin(ctx, opReload, "")
	defer func() { done(err) }()

	epoch, err := e.enqueue(ctx)
	if errors.Is(err, errStale) {
		e.logg.Info(ctx, "cart.reload.discarded")
		return nil
	}
	if err != nil {
		return err
	}
	defer e.release()
	return e.reloadQueued(ctx, sess, epoch)
}

// AddItem adds quantity units of a medication, then reloads the cart.
func (e *Engine) AddItem(ctx context.Context, sess *session.Session, medicationID string, quantity int) (err error) {
	medicationID = strings.TrimSpace(medicationID)
	ctx, done := e.begin(ctx, opAdd, medicationID)
	defer func() { done(err) }()

	if !sess.Valid() {
		return errUnauthenticated()
	}
	if medicationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "medication id is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	epoch, err := e.enqueue(ctx)
	if err != nil {
		return err
	}
	defer e.release()

	current, _ := e.Snapshot().Line(medicationID)
	if current.Quantity+quantity > e.maxQty {
		return e.errAboveMax()
	}

	if err := e.remote.AddToCart(ctx, sess.Token, medicationID, quantity); err != nil {
		e.logg.WarnErr(ctx, "cart.add.failed", err)
		return remoteErr(err, "add to cart")
	}
	if err := e.reloadQueued(ctx, sess, epoch); err != nil {
		e.logg.WarnErr(ctx, "cart.add.reload_failed", err)
	}
	return nil
}

// UpdateQuantity moves a line by delta. The current quantity is read once the
// operation holds the queue, so rapid steps accumulate.
func (e *Engine) UpdateQuantity(ctx context.Context, sess *session.Session, medicationID string, delta int) (err error) {
	medicationID = strings.TrimSpace(medicationID)
	ctx, done := e.begin(ctx, opUpdate, medicationID)
	defer func() { done(err) }()

	if !sess.Valid() {
		return errUnauthenticated()
	}

	epoch, err := e.enqueue(ctx)
	if err != nil {
		return err
	}
	defer e.release()

	line, ok := e.Snapshot().Line(medicationID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "medication is not in the cart")
	}
	next := line.Quantity + delta
	if next < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be less than 1")
	}
	if next > e.maxQty {
		return e.errAboveMax()
	}
	if delta == 0 {
		return nil
	}

	if err := e.remote.UpdateCartItem(ctx, sess.Token, medicationID, next); err != nil {
		e.logg.WarnErr(ctx, "cart.update.failed", err)
		return remoteErr(err, "update cart item")
	}
	e.commit(ctx, epoch, func(s *Snapshot) bool {
		for i := range s.Lines {
			if s.Lines[i].MedicationID == medicationID {
				s.Lines[i].Quantity = next
				return true
			}
		}
		return false
	})
	return nil
}

// RemoveItem drops a medication from the cart.
func (e *Engine) RemoveItem(ctx context.Context, sess *session.Session, medicationID string) (err error) {
	medicationID = strings.TrimSpace(medicationID)
	ctx, done := e.begin(ctx, opRemove, medicationID)
	defer func() { done(err) }()

	if !sess.Valid() {
		return errUnauthenticated()
	}
	if medicationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "medication id is required")
	}

	epoch, err := e.enqueue(ctx)
	if err != nil {
		return err
	}
	defer e.release()

	if err := e.remote.RemoveCartItem(ctx, sess.Token, medicationID); err != nil {
		e.logg.WarnErr(ctx, "cart.remove.failed", err)
		return remoteErr(err, "remove cart item")
	}
	e.commit(ctx, epoch, func(s *Snapshot) bool {
		kept := s.Lines[:0]
		for _, l := range s.Lines {
			if l.MedicationID != medicationID {
				kept = append(kept, l)
			}
		}
		s.Lines = kept
		return true
	})
	return nil
}

// Clear empties the server cart. A cart that is already empty counts as cleared.
func (e *Engine) Clear(ctx context.Context, sess *session.Session) (err error) {
	ctx, done := e.begin(ctx, opClear, "")
	defer func() { done(err) }()

	if !sess.Valid() {
		return errUnauthenticated()
	}

	epoch, err := e.enqueue(ctx)
	if err != nil {
		return err
	}
	defer e.release()

	if _, err := e.remote.DeleteCart(ctx, sess.Token); err != nil {
		e.logg.WarnErr(ctx, "cart.clear.failed", err)
		return remoteErr(err, "clear cart")
	}
	e.commit(ctx, epoch, func(s *Snapshot) bool {
		s.Lines = []Line{}
		return true
	})
	return nil
}

// ResetLocal empties the local snapshot without calling the API, for sign-out
// and after a completed checkout.
func (e *Engine) ResetLocal() {
	ctx, done := e.begin(context.Background(), opReset, "")
	e.commitMu.Lock()
	e.mu.Lock()
	e.epoch++
	e.snap.Lines = []Line{}
	e.snap.Version++
	out, listeners := e.publishLocked()
	e.mu.Unlock()
	e.notify(listeners, out)
	e.commitMu.Unlock()
	e.logg.Debug(ctx, "cart.reset_local")
	done(nil)
}

// reloadQueued fetches the server cart for an operation holding the queue.
// epoch is the one the operation read before it was queued.
func (e *Engine) reloadQueued(ctx context.Context, sess *session.Session, epoch uint64) error {
	if e.currentEpoch() != epoch {
		e.logg.Info(ctx, "cart.reload.discarded")
		return nil
	}
	payload, err := e.remote.GetCart(ctx, sess.Token)
	if err != nil {
		e.logg.Error(ctx, "cart.reload.failed", err)
		return remoteErr(err, "reload cart")
	}
	lines := linesFromPayload(payload)
	if !e.commit(ctx, epoch, func(s *Snapshot) bool {
		s.Lines = lines
		return true
	}) {
		e.logg.Info(ctx, "cart.reload.discarded")
	}
	return nil
}

// commit applies mutate unless ResetLocal ran after epoch was read.
func (e *Engine) commit(ctx context.Context, epoch uint64, mutate func(*Snapshot) bool) bool {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return false
	}
	work := e.snap.clone()
	if !mutate(&work) {
		e.mu.Unlock()
		return false
	}
	work.Version = e.snap.Version + 1
	e.snap = work
	out, listeners := e.publishLocked()
	e.mu.Unlock()

	e.notify(listeners, out)
	e.logg.Debug(e.logg.WithField(ctx, "cart_version", out.Version), "cart.committed")
	return true
}

func (e *Engine) publishLocked() (Snapshot, []func(Snapshot)) {
	listeners := make([]func(Snapshot), 0, len(e.listeners))
	for id := uint64(0); id < e.nextID; id++ {
		if fn, ok := e.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	e.metrics.SetLines(len(e.snap.Lines))
	return e.snap.clone(), listeners
}

func (e *Engine) notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap.clone())
	}
}

func (e *Engine) currentEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// enqueue waits for the queue and returns the epoch read before waiting. If
// ResetLocal ran in the meantime the slot is given back and errStale returned.
func (e *Engine) enqueue(ctx context.Context) (uint64, error) {
	epoch := e.currentEpoch()
	if e.queued != nil {
		e.queued()
	}
	if err := e.acquire(ctx); err != nil {
		return 0, err
	}
	if e.currentEpoch() != epoch {
		e.release()
		e.logg.Info(ctx, "cart.operation.abandoned")
		return 0, pkgerrors.Wrap(pkgerrors.CodeConflict, errStale, "the cart changed, please try again")
	}
	return epoch, nil
}

func (e *Engine) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "cart operation cancelled")
	}
	select {
	case e.queue <- struct{}{}:
		return nil
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, ctx.Err(), "cart operation cancelled")
	}
}

func (e *Engine) release() {
	<-e.queue
}

// begin decorates ctx for logging and returns a closure recording the outcome.
func (e *Engine) begin(ctx context.Context, op, medicationID string) (context.Context, func(error)) {
	ctx = e.logg.WithOperation(ctx, op)
	if medicationID != "" {
		ctx = e.logg.WithMedicationID(ctx, medicationID)
	}
	start := time.Now()
	return ctx, func(err error) {
		code := ""
		if err != nil {
			code = string(pkgerrors.CodeOf(err))
		}
		e.metrics.Track(op, start, code)
	}
}

func (e *Engine) errAboveMax() error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot exceed %d units of a single medication", e.maxQty))
}

// remoteErr keeps typed API errors and reports anything else as a network failure.
func remoteErr(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, msg)
}

func errUnauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthenticated, "please sign in to manage your cart")
}
