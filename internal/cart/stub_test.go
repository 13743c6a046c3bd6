package cart

import (
	"context"
	"sync"

	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/shopspring/decimal"
)

// fakeAPI simulates the server-side cart and records every call.
type fakeAPI struct {
	mu    sync.Mutex
	items []dwayee.CartItem
	calls []string
	sent  []int

	getErr    error
	addErr    error
	updateErr error
	removeErr error
	deleteErr error

	// gate, when set, blocks every call until closed; entered reports each blocked call.
	gate    chan struct{}
	entered chan string
}

func newFakeAPI(items ...dwayee.CartItem) *fakeAPI {
	return &fakeAPI{items: items, entered: make(chan string, 16)}
}

func item(id string, price string, qty int) dwayee.CartItem {
	return dwayee.CartItem{
		MedicationID: id,
		Name:         "med-" + id,
		Price:        decimal.RequireFromString(price),
		Quantity:     qty,
	}
}

func (f *fakeAPI) hold() {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()
}

func (f *fakeAPI) open() {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (f *fakeAPI) enter(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		f.entered <- op
		<-gate
	}
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) sentQuantities() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.sent...)
}

func (f *fakeAPI) GetCart(ctx context.Context, token string) (*dwayee.CartPayload, error) {
	f.enter("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dwayee.CartPayload{Items: append([]dwayee.CartItem{}, f.items...)}, nil
}

func (f *fakeAPI) AddToCart(ctx context.Context, token, medicationID string, quantity int) error {
	f.enter("add")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, quantity)
	if f.addErr != nil {
		return f.addErr
	}
	for i := range f.items {
		if f.items[i].MedicationID == medicationID {
			f.items[i].Quantity += quantity
			return nil
		}
	}
	f.items = append(f.items, item(medicationID, "10", quantity))
	return nil
}

func (f *fakeAPI) UpdateCartItem(ctx context.Context, token, medicationID string, quantity int) error {
	f.enter("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, quantity)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.items {
		if f.items[i].MedicationID == medicationID {
			f.items[i].Quantity = quantity
		}
	}
	return nil
}

func (f *fakeAPI) RemoveCartItem(ctx context.Context, token, medicationID string) error {
	f.enter("remove")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	kept := f.items[:0]
	for _, it := range f.items {
		if it.MedicationID != medicationID {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeAPI) DeleteCart(ctx context.Context, token string) (*dwayee.DeleteCartResult, error) {
	f.enter("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.items = nil
	return &dwayee.DeleteCartResult{Cleared: true}, nil
}
