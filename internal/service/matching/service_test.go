package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository/memory"
	"github.com/jwalitptl/bloodlink-api/internal/service/directory"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

const (
	aPositive int64 = 1
	beirut    int64 = 1
	tripoli   int64 = 4
)

func newEngine(donors ...*model.DonorProfile) *Service {
	dir := directory.NewService(memory.NewDonorRepository(donors...), memory.NewReferenceRepository(), time.Minute, time.Minute, logger.NewNop())
	return NewService(dir, logger.NewNop())
}

func TestMatchDonors_Exactness(t *testing.T) {
	engine := newEngine(
		&model.DonorProfile{ID: 1, BloodTypeID: aPositive, LocationID: beirut, IsAvailable: true, IsHealthyForDonation: true},
		&model.DonorProfile{ID: 2, BloodTypeID: aPositive, LocationID: beirut, IsAvailable: false, IsHealthyForDonation: true},
		&model.DonorProfile{ID: 3, BloodTypeID: aPositive, LocationID: tripoli, IsAvailable: true, IsHealthyForDonation: true},
	)

	got, err := engine.MatchDonors(context.Background(), &model.DonorRequest{ID: 1, BloodTypeID: aPositive, LocationID: beirut})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestMatchDonors_EmptyIsNotAnError(t *testing.T) {
	engine := newEngine()

	got, err := engine.MatchDonors(context.Background(), &model.DonorRequest{ID: 1, BloodTypeID: aPositive, LocationID: beirut})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestContacts_HidesIdentity(t *testing.T) {
	donors := []*model.DonorProfile{
		{ID: 8, FirstName: "Lina", LastName: "Aoun", Email: "lina@example.com", Phone: "+9611", IsIdentityHidden: true},
		{ID: 9, FirstName: "Omar", LastName: "Nasr", Email: "omar@example.com"},
	}

	t.Run("admin keeps channels", func(t *testing.T) {
		contacts := Contacts(donors, model.ScopeAdmin)

		require.Len(t, contacts, 2)
		assert.Equal(t, "Donor #8", contacts[0].Name)
		assert.Equal(t, "lina@example.com", contacts[0].Email)
		assert.Equal(t, "Omar Nasr", contacts[1].Name)
	})

	t.Run("requester sees pseudonym only", func(t *testing.T) {
		contacts := Contacts(donors, model.ScopeRequester)

		require.Len(t, contacts, 2)
		assert.Equal(t, "Donor #8", contacts[0].Name)
		assert.Empty(t, contacts[0].Email)
		assert.Empty(t, contacts[0].Phone)
		assert.Equal(t, "omar@example.com", contacts[1].Email)
	})
}
