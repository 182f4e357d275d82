package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/common"
	"github.com/jason-s-yu/fittogether/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(from, to uuid.UUID) *models.PartnerRequest {
	return &models.PartnerRequest{ID: uuid.New(), From: from, To: to, Status: models.StatusPending, CreatedAt: time.Now()}
}

func addUser(t *testing.T, s *Store) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, s.CreateUser(context.Background(), &models.User{ID: id, Email: id.String() + "@x.io"}))
	return id
}

func TestPendingPairIsUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := addUser(t, s), addUser(t, s)

	first := pending(a, b)
	require.NoError(t, s.InsertRequest(ctx, first))
	assert.ErrorIs(t, s.InsertRequest(ctx, pending(a, b)), common.ErrConflict)
	// the reverse direction is a different pair
	require.NoError(t, s.InsertRequest(ctx, pending(b, a)))

	ok, err := s.TransitionRequest(ctx, first.ID, models.StatusPending, models.StatusRejected)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, s.InsertRequest(ctx, pending(a, b)))
}

func TestTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := pending(addUser(t, s), addUser(t, s))
	require.NoError(t, s.InsertRequest(ctx, r))

	ok, err := s.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TransitionRequest(ctx, r.ID, models.StatusPending, models.StatusRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	ok, err = s.TransitionRequest(ctx, uuid.New(), models.StatusPending, models.StatusAccepted)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPartnerSetSemantics(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &models.User{ID: uuid.New(), Email: "a@x.io"}
	b := &models.User{ID: uuid.New(), Email: "b@x.io"}
	require.NoError(t, s.CreateUser(ctx, a))
	require.NoError(t, s.CreateUser(ctx, b))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{ID: uuid.New(), Email: "A@X.io"}), common.ErrConflict)

	require.NoError(t, s.AddPartner(ctx, a.ID, b.ID))
	require.NoError(t, s.AddPartner(ctx, a.ID, b.ID))
	assert.ErrorIs(t, s.AddPartner(ctx, a.ID, uuid.New()), common.ErrNotFound)

	got, err := s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, got.Partners)

	// returned records are copies
	got.Partners[0] = uuid.Nil
	again, err := s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, again.Partners)

	require.NoError(t, s.PullPartnerEverywhere(ctx, b.ID))
	again, err = s.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Partners)

	profiles, err := s.GetProfiles(ctx, []uuid.UUID{b.ID, uuid.New(), a.ID})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, b.ID, profiles[0].ID)
}

func TestInsertRequestNeedsBothUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := addUser(t, s)

	assert.ErrorIs(t, s.InsertRequest(ctx, pending(a, uuid.New())), common.ErrNotFound)
	assert.ErrorIs(t, s.InsertRequest(ctx, pending(uuid.New(), a)), common.ErrNotFound)

	reqs, err := s.ListPendingFrom(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestDeleteUserDropsReferences(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b, c := addUser(t, s), addUser(t, s), addUser(t, s)

	require.NoError(t, s.AddPartner(ctx, a, b))
	require.NoError(t, s.AddPartner(ctx, c, b))
	require.NoError(t, s.InsertRequest(ctx, pending(b, c)))
	require.NoError(t, s.InsertRequest(ctx, pending(a, c)))

	require.NoError(t, s.DeleteUser(ctx, b))

	_, err := s.GetUser(ctx, b)
	assert.ErrorIs(t, err, common.ErrNotFound)
	for _, id := range []uuid.UUID{a, c} {
		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, u.Partners)
	}
	reqs, err := s.ListPendingTo(ctx, c)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, a, reqs[0].From)

	assert.ErrorIs(t, s.AddPartner(ctx, a, b), common.ErrNotFound)
}
