package partner_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/database/memory"
	"github.com/jason-s-yu/fittogether/internal/models"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newUser(t *testing.T, s *memory.Store, name string) uuid.UUID {
	t.Helper()
	u := &models.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.com",
		AvatarURL: "https://img.example/" + name,
		Location:  "Lyon",
		Level:     "beginner",
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u.ID
}

func partnersOf(t *testing.T, s *memory.Store, id uuid.UUID) []uuid.UUID {
	t.Helper()
	u, err := s.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.Partners
}

// steppingClock returns strictly increasing times so "newest first" is deterministic.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func setup(t *testing.T, opts ...partner.Option) (*partner.Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	opts = append([]partner.Option{partner.WithClock(steppingClock())}, opts...)
	return partner.NewEngine(s, quietLogger(), opts...), s
}

func TestSubmitRequestCreatesSinglePending(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, req.ID)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.False(t, req.CreatedAt.IsZero())

	_, err = e.SubmitRequest(ctx, a, b)
	assert.ErrorIs(t, err, partner.ErrDuplicatePending)

	out, err := e.ListOutgoingRequests(ctx, a)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, req.ID, out[0].ID)
	assert.Equal(t, b, out[0].User.ID)
}

func TestSubmitRequestValidation(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a := newUser(t, s, "alice")

	tests := []struct {
		name     string
		from, to uuid.UUID
		want     error
	}{
		{"self", a, a, partner.ErrInvalidArgument},
		{"nil from", uuid.Nil, a, partner.ErrInvalidArgument},
		{"nil to", a, uuid.Nil, partner.ErrInvalidArgument},
		{"unknown recipient", a, uuid.New(), partner.ErrNotFound},
		{"unknown sender", uuid.New(), a, partner.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.SubmitRequest(ctx, tc.from, tc.to)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReversePendingRequestsCoexist(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	ab, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	ba, err := e.SubmitRequest(ctx, b, a)
	require.NoError(t, err)
	assert.NotEqual(t, ab.ID, ba.ID)

	_, err = e.RespondToRequest(ctx, ab.ID, b, partner.Accept)
	require.NoError(t, err)

	// the reverse request is still open and can be answered on its own
	got, err := e.RespondToRequest(ctx, ba.ID, a, partner.Accept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Equal(t, []uuid.UUID{b}, partnersOf(t, s, a))
	assert.Equal(t, []uuid.UUID{a}, partnersOf(t, s, b))
}

func TestAcceptLinksBothUsers(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = e.RespondToRequest(ctx, req.ID, a, partner.Accept)
	assert.ErrorIs(t, err, partner.ErrForbidden)

	_, err = e.RespondToRequest(ctx, req.ID, uuid.New(), partner.Reject)
	assert.ErrorIs(t, err, partner.ErrForbidden)

	got, err := e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)

	stored, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.Equal(t, []uuid.UUID{b}, partnersOf(t, s, a))
	assert.Equal(t, []uuid.UUID{a}, partnersOf(t, s, b))

	_, err = e.SubmitRequest(ctx, a, b)
	assert.ErrorIs(t, err, partner.ErrAlreadyPartners)
	_, err = e.SubmitRequest(ctx, b, a)
	assert.ErrorIs(t, err, partner.ErrAlreadyPartners)
}

func TestAcceptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)

	// re-running the accept only re-applies the set additions
	got, err := e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)

	require.NoError(t, s.AddPartner(ctx, a, b))
	require.NoError(t, s.AddPartner(ctx, b, a))
	assert.Equal(t, []uuid.UUID{b}, partnersOf(t, s, a))
	assert.Equal(t, []uuid.UUID{a}, partnersOf(t, s, b))

	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Reject)
	assert.ErrorIs(t, err, partner.ErrInvalidState)
}

func TestRejectIsTerminal(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)

	got, err := e.RespondToRequest(ctx, req.ID, b, partner.Reject)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Empty(t, partnersOf(t, s, a))
	assert.Empty(t, partnersOf(t, s, b))

	for _, d := range []partner.Decision{partner.Accept, partner.Reject} {
		_, err = e.RespondToRequest(ctx, req.ID, b, d)
		assert.ErrorIs(t, err, partner.ErrInvalidState, string(d))
	}

	// a rejected request no longer blocks a fresh one
	_, err = e.SubmitRequest(ctx, a, b)
	assert.NoError(t, err)
}

func TestRespondValidation(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")
	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Decision("maybe"))
	assert.ErrorIs(t, err, partner.ErrInvalidArgument)

	_, err = e.RespondToRequest(ctx, uuid.New(), b, partner.Accept)
	assert.ErrorIs(t, err, partner.ErrNotFound)

	_, err = e.RespondToRequest(ctx, uuid.Nil, b, partner.Accept)
	assert.ErrorIs(t, err, partner.ErrInvalidArgument)
}

func TestScenarioIncomingListing(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	u1, u2 := newUser(t, s, "u1"), newUser(t, s, "u2")

	r1, err := e.SubmitRequest(ctx, u1, u2)
	require.NoError(t, err)

	incoming, err := e.ListIncomingRequests(ctx, u2)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, r1.ID, incoming[0].ID)
	assert.Equal(t, u1, incoming[0].User.ID)
	assert.Equal(t, "u1", incoming[0].User.Name)

	_, err = e.RespondToRequest(ctx, r1.ID, u2, partner.Accept)
	require.NoError(t, err)

	p1, err := e.ListPartners(ctx, u1)
	require.NoError(t, err)
	require.Len(t, p1, 1)
	assert.Equal(t, u2, p1[0].ID)

	p2, err := e.ListPartners(ctx, u2)
	require.NoError(t, err)
	require.Len(t, p2, 1)
	assert.Equal(t, u1, p2[0].ID)

	incoming, err = e.ListIncomingRequests(ctx, u2)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestIncomingNewestFirst(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	target := newUser(t, s, "target")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		from := newUser(t, s, fmt.Sprintf("sender%d", i))
		req, err := e.SubmitRequest(ctx, from, target)
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	incoming, err := e.ListIncomingRequests(ctx, target)
	require.NoError(t, err)
	require.Len(t, incoming, 3)
	assert.Equal(t, ids[2], incoming[0].ID)
	assert.Equal(t, ids[1], incoming[1].ID)
	assert.Equal(t, ids[0], incoming[2].ID)
}

func TestListingsRequireExistingUser(t *testing.T) {
	ctx := context.Background()
	e, _ := setup(t)

	_, err := e.ListPartners(ctx, uuid.New())
	assert.ErrorIs(t, err, partner.ErrNotFound)
	_, err = e.ListIncomingRequests(ctx, uuid.New())
	assert.ErrorIs(t, err, partner.ErrNotFound)
	_, err = e.ListOutgoingRequests(ctx, uuid.New())
	assert.ErrorIs(t, err, partner.ErrNotFound)
}

func TestRemovePartner(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)

	require.NoError(t, e.RemovePartner(ctx, a, b))
	assert.Empty(t, partnersOf(t, s, a))
	assert.Empty(t, partnersOf(t, s, b))

	// idempotent
	require.NoError(t, e.RemovePartner(ctx, a, b))
	assert.ErrorIs(t, e.RemovePartner(ctx, a, a), partner.ErrInvalidArgument)
	assert.ErrorIs(t, e.RemovePartner(ctx, uuid.New(), a), partner.ErrNotFound)

	// they can partner up again
	_, err = e.SubmitRequest(ctx, b, a)
	assert.NoError(t, err)
}

func TestRemoveUserCascades(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b, c := newUser(t, s, "alice"), newUser(t, s, "bob"), newUser(t, s, "carol")

	ab, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, ab.ID, b, partner.Accept)
	require.NoError(t, err)
	ca, err := e.SubmitRequest(ctx, c, a)
	require.NoError(t, err)
	cb, err := e.SubmitRequest(ctx, c, b)
	require.NoError(t, err)

	require.NoError(t, e.RemoveUser(ctx, a))

	_, err = s.GetUser(ctx, a)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, partnersOf(t, s, b))
	assert.Empty(t, partnersOf(t, s, c))

	for _, id := range []uuid.UUID{ab.ID, ca.ID} {
		_, err = s.GetRequest(ctx, id)
		assert.ErrorIs(t, err, common.ErrNotFound)
	}
	_, err = e.RespondToRequest(ctx, ca.ID, a, partner.Accept)
	assert.ErrorIs(t, err, partner.ErrNotFound)

	// requests between other users survive
	_, err = s.GetRequest(ctx, cb.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, e.RemoveUser(ctx, a), partner.ErrNotFound)
}

// hookStore runs a callback in the middle of an engine call so another
// operation can interleave with it.
type hookStore struct {
	*memory.Store
	beforeFindPending func()
	afterPull         func()
}

func (h hookStore) FindPendingRequest(ctx context.Context, from, to uuid.UUID) (*models.PartnerRequest, error) {
	if h.beforeFindPending != nil {
		h.beforeFindPending()
	}
	return h.Store.FindPendingRequest(ctx, from, to)
}

func (h hookStore) PullPartnerEverywhere(ctx context.Context, partnerID uuid.UUID) error {
	err := h.Store.PullPartnerEverywhere(ctx, partnerID)
	if h.afterPull != nil {
		h.afterPull()
	}
	return err
}

func TestSubmitRacingRemovalLeavesNoRequest(t *testing.T) {
	ctx := context.Background()
	remover, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	e := partner.NewEngine(hookStore{Store: s, beforeFindPending: func() {
		require.NoError(t, remover.RemoveUser(ctx, b))
	}}, quietLogger())

	_, err := e.SubmitRequest(ctx, a, b)
	assert.ErrorIs(t, err, partner.ErrNotFound)

	out, err := remover.ListOutgoingRequests(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAcceptRacingRemovalLeavesNoDanglingPartner(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	// an accept that already passed its checks links the pair while bob is
	// being removed
	e := partner.NewEngine(hookStore{Store: s, afterPull: func() {
		require.NoError(t, s.AddPartner(ctx, a, b))
		require.NoError(t, s.AddPartner(ctx, b, a))
	}}, quietLogger())

	require.NoError(t, e.RemoveUser(ctx, b))
	assert.Empty(t, partnersOf(t, s, a))

	profiles, err := e.ListPartners(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestConcurrentAcceptAndReject(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		e, s := setup(t)
		a, b := newUser(t, s, "alice"), newUser(t, s, "bob")
		req, err := e.SubmitRequest(ctx, a, b)
		require.NoError(t, err)

		var (
			wg   sync.WaitGroup
			errs [2]error
		)
		for j, d := range []partner.Decision{partner.Accept, partner.Reject} {
			j, d := j, d
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[j] = e.RespondToRequest(ctx, req.ID, b, d)
			}()
		}
		wg.Wait()

		stored, err := s.GetRequest(ctx, req.ID)
		require.NoError(t, err)

		switch stored.Status {
		case models.StatusAccepted:
			assert.NoError(t, errs[0])
			assert.ErrorIs(t, errs[1], partner.ErrInvalidState)
			assert.Equal(t, []uuid.UUID{b}, partnersOf(t, s, a))
		case models.StatusRejected:
			assert.NoError(t, errs[1])
			assert.ErrorIs(t, errs[0], partner.ErrInvalidState)
			assert.Empty(t, partnersOf(t, s, a))
		default:
			t.Fatalf("request left in %s", stored.Status)
		}
	}
}

func TestConcurrentSubmitsLeaveOnePending(t *testing.T) {
	ctx := context.Background()
	e, s := setup(t)
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.SubmitRequest(ctx, a, b)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, partner.ErrDuplicatePending)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	pending, err := s.ListPendingTo(ctx, b)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// racyStore hides pending requests from the pre-check so the insert's
// uniqueness guarantee is what has to catch the duplicate.
type racyStore struct{ *memory.Store }

func (racyStore) FindPendingRequest(ctx context.Context, from, to uuid.UUID) (*models.PartnerRequest, error) {
	return nil, common.ErrNotFound
}

func TestInsertConflictBecomesDuplicatePending(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	e := partner.NewEngine(racyStore{s}, quietLogger())
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	_, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.SubmitRequest(ctx, a, b)
	assert.ErrorIs(t, err, partner.ErrDuplicatePending)
}

// flakyStore fails the next AddPartner calls, simulating a crash between
// the status update and the set additions.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failNext int
}

func (f *flakyStore) AddPartner(ctx context.Context, userID, partnerID uuid.UUID) error {
	f.mu.Lock()
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return fmt.Errorf("add partner: %w: connection reset", common.ErrUnavailable)
	}
	f.mu.Unlock()
	return f.Store.AddPartner(ctx, userID, partnerID)
}

func TestAcceptResumesAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	fs := &flakyStore{Store: s}
	e := partner.NewEngine(fs, quietLogger())
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)

	fs.failNext = 1
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.ErrorIs(t, err, partner.ErrStoreUnavailable)
	assert.True(t, partner.Retryable(err))
	assert.ErrorIs(t, err, common.ErrUnavailable)

	// the status moved but neither link exists yet
	stored, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.Empty(t, partnersOf(t, s, a))

	got, err := e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Equal(t, []uuid.UUID{b}, partnersOf(t, s, a))
	assert.Equal(t, []uuid.UUID{a}, partnersOf(t, s, b))
}

// txStore records WithinTx calls; the memory store has no rollback, which
// is fine for checking that the engine routes mutations through it.
type txStore struct {
	*memory.Store
	calls int
}

func (t *txStore) WithinTx(ctx context.Context, fn func(tx partner.Store) error) error {
	t.calls++
	return fn(t.Store)
}

func TestEngineUsesTransactions(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	ts := &txStore{Store: s}
	e := partner.NewEngine(ts, quietLogger())
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)
	require.NoError(t, e.RemovePartner(ctx, a, b))
	require.NoError(t, e.RemoveUser(ctx, a))

	assert.Equal(t, 3, ts.calls)
}

type downStore struct{ *memory.Store }

func (downStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, fmt.Errorf("get user: %w: dial tcp: refused", common.ErrUnavailable)
}

func TestStoreFailuresAreClassified(t *testing.T) {
	e := partner.NewEngine(downStore{memory.New()}, quietLogger())

	_, err := e.SubmitRequest(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, partner.StoreUnavailable, partner.KindOf(err))
	assert.True(t, partner.Retryable(err))

	var perr *partner.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "partner.SubmitRequest", perr.Op)
}

func TestNotifierReceivesCommittedEvents(t *testing.T) {
	ctx := context.Background()

	var (
		mu  sync.Mutex
		got []partner.EventType
	)
	n := partner.NotifierFunc(func(ctx context.Context, ev partner.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Type)
		return errors.New("delivery failures are only logged")
	})
	e, s := setup(t, partner.WithNotifier(n))
	a, b := newUser(t, s, "alice"), newUser(t, s, "bob")

	req, err := e.SubmitRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Accept)
	require.NoError(t, err)
	_, err = e.RespondToRequest(ctx, req.ID, b, partner.Reject)
	require.Error(t, err)
	require.NoError(t, e.RemoveUser(ctx, b))

	assert.Equal(t, []partner.EventType{
		partner.EventRequestCreated,
		partner.EventRequestAccepted,
		partner.EventUserRemoved,
	}, got)
}
