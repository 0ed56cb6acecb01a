package service

import (
	"context"
	"sync"

	"buildboard/internal/model"
	"buildboard/internal/repository"
)

// 内存假存储，语义对齐 pgx 实现：Find* 未命中返回 (nil, nil)，
// 唯一冲突返回 repository.ErrDuplicate，条件更新在锁内检查并写入。

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	email map[string]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*model.User{}, email: map[string]string{}}
}

func (f *fakeUsers) Insert(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.email[u.Email]; ok {
		return repository.ErrDuplicate
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.email[u.Email] = u.ID
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.email[email]
	if !ok {
		return nil, nil
	}
	cp := *f.byID[id]
	return &cp, nil
}

type fakeProjects struct {
	mu   sync.Mutex
	byID map[string]*model.Project
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{byID: map[string]*model.Project{}}
}

func (f *fakeProjects) Insert(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProjects) FindByID(_ context.Context, id string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) list(pred func(*model.Project) bool) []*model.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Project
	for _, p := range f.byID {
		if pred(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeProjects) ListByBuyer(_ context.Context, buyerID string) ([]*model.Project, error) {
	return f.list(func(p *model.Project) bool { return p.BuyerID == buyerID }), nil
}

func (f *fakeProjects) ListBySeller(_ context.Context, sellerID string) ([]*model.Project, error) {
	return f.list(func(p *model.Project) bool { return p.SellerID != nil && *p.SellerID == sellerID }), nil
}

func (f *fakeProjects) ListByStatus(_ context.Context, status string) ([]*model.Project, error) {
	return f.list(func(p *model.Project) bool { return p.Status == status }), nil
}

func (f *fakeProjects) AssignSeller(_ context.Context, projectID, sellerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[projectID]
	if !ok || p.Status != model.ProjectPending {
		return false, nil
	}
	sid := sellerID
	p.SellerID = &sid
	p.Status = model.ProjectInProgress
	return true, nil
}

func (f *fakeProjects) CompareAndSwapStatus(_ context.Context, projectID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[projectID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *fakeProjects) Cancel(_ context.Context, projectID, from string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[projectID]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = model.ProjectCancelled
	p.SellerID = nil
	return true, nil
}

func (f *fakeProjects) SetPaymentPending(_ context.Context, projectID string, finalAmount float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[projectID]
	if !ok || p.Status != model.ProjectCompleted {
		return false, nil
	}
	p.Status = model.ProjectPaymentPending
	p.FinalAmount = &finalAmount
	return true, nil
}

type fakeBids struct {
	mu   sync.Mutex
	byID map[string]*model.Bid
}

func newFakeBids() *fakeBids {
	return &fakeBids{byID: map[string]*model.Bid{}}
}

func (f *fakeBids) Insert(_ context.Context, b *model.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.ProjectID == b.ProjectID && existing.SellerID == b.SellerID {
			return repository.ErrDuplicate
		}
	}
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBids) FindByID(_ context.Context, id string) (*model.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBids) FindByProjectAndSeller(_ context.Context, projectID, sellerID string) (*model.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.ProjectID == projectID && b.SellerID == sellerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBids) ListByProject(_ context.Context, projectID string) ([]*model.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Bid
	for _, b := range f.byID {
		if b.ProjectID == projectID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeBids) Update(_ context.Context, b *model.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBids) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

type fakeReviews struct {
	mu        sync.Mutex
	byProject map[string]*model.Review
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{byProject: map[string]*model.Review{}}
}

func (f *fakeReviews) Insert(_ context.Context, rv *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byProject[rv.ProjectID]; ok {
		return repository.ErrDuplicate
	}
	cp := *rv
	f.byProject[rv.ProjectID] = &cp
	return nil
}

func (f *fakeReviews) FindByProject(_ context.Context, projectID string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.byProject[projectID]
	if !ok {
		return nil, nil
	}
	cp := *rv
	return &cp, nil
}

func (f *fakeReviews) ListBySeller(_ context.Context, sellerID string) ([]*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Review
	for _, rv := range f.byProject {
		if rv.SellerID == sellerID {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReviews) Update(_ context.Context, rv *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rv
	f.byProject[rv.ProjectID] = &cp
	return nil
}

func (f *fakeReviews) SellerRating(_ context.Context, sellerID string) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum, count int
	for _, rv := range f.byProject {
		if rv.SellerID == sellerID {
			sum += rv.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

type fakePayments struct {
	mu   sync.Mutex
	byID map[string]*model.Payment
}

func newFakePayments() *fakePayments {
	return &fakePayments{byID: map[string]*model.Payment{}}
}

func (f *fakePayments) Insert(_ context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// 对齐 payments(project_id) WHERE status = 'PENDING' 的部分唯一索引
	if p.Status == model.PaymentPending {
		for _, existing := range f.byID {
			if existing.ProjectID == p.ProjectID && existing.Status == model.PaymentPending {
				return repository.ErrDuplicate
			}
		}
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePayments) FindByID(_ context.Context, id string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) HasActiveOrCompleted(_ context.Context, projectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.ProjectID == projectID && (p.Status == model.PaymentPending || p.Status == model.PaymentCompleted) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayments) MarkProcessed(_ context.Context, paymentID, status, transactionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = status
	p.TransactionID = transactionID
	return true, nil
}

func (f *fakePayments) ListByProject(_ context.Context, projectID string) ([]*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Payment
	for _, p := range f.byID {
		if p.ProjectID == projectID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeDeliverables struct {
	mu    sync.Mutex
	items []*model.Deliverable
}

func newFakeDeliverables() *fakeDeliverables {
	return &fakeDeliverables{}
}

func (f *fakeDeliverables) Insert(_ context.Context, d *model.Deliverable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeDeliverables) ListByProject(_ context.Context, projectID string) ([]*model.Deliverable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Deliverable
	for _, d := range f.items {
		if d.ProjectID == projectID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}
