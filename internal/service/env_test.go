package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"buildboard/internal/model"
)

type testEnv struct {
	users        *fakeUsers
	projects     *fakeProjects
	bids         *fakeBids
	reviews      *fakeReviews
	payments     *fakePayments
	deliverables *fakeDeliverables

	userSvc    *UserService
	projectSvc *ProjectService
	bidSvc     *BidService
	reviewSvc  *ReviewService
	paymentSvc *PaymentService

	ctx context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	env := &testEnv{
		users:        newFakeUsers(),
		projects:     newFakeProjects(),
		bids:         newFakeBids(),
		reviews:      newFakeReviews(),
		payments:     newFakePayments(),
		deliverables: newFakeDeliverables(),
		ctx:          context.Background(),
	}
	env.userSvc = NewUserService(env.users, "test-secret", logger)
	env.projectSvc = NewProjectService(env.projects, env.bids, env.users, env.deliverables, logger)
	env.bidSvc = NewBidService(env.bids, env.projects, env.users, logger)
	env.reviewSvc = NewReviewService(env.reviews, env.projects, logger)
	env.paymentSvc = NewPaymentService(env.payments, env.projects, SimulatedGateway{}, logger)
	return env
}

func (env *testEnv) seedUser(t *testing.T, id, name, role string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           id,
		Name:         name,
		Email:        id + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := env.users.Insert(env.ctx, u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func (env *testEnv) seedProject(t *testing.T, buyerID string) *model.Project {
	t.Helper()
	p, _, err := env.projectSvc.Create(env.ctx, buyerID, CreateProjectInput{
		Title:       "Logo redesign",
		Description: "Refresh the brand",
		BudgetRange: "500-1000",
		Deadline:    time.Now().Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

// mustCode 断言错误属于期望的分类
func mustCode(t *testing.T, err error, want Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := CodeOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}
