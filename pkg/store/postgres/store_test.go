package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/errs"
	"github.com/tapecert/tapecert/pkg/store"
)

// setupTestStore runs the full store against in-memory SQLite. The schema
// and queries stay within the dialect subset shared with PostgreSQL.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second connection would see a different empty :memory: database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewWithDB(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func testCredential(role auth.Role, username string) *auth.Credential {
	company := "Test Co"
	return &auth.Credential{
		Identity: auth.Identity{
			ID:          uuid.NewString(),
			Username:    username,
			Role:        role,
			CompanyName: &company,
		},
		PasswordSalt: []byte{1, 2, 3, 4},
		PasswordHash: []byte{5, 6, 7, 8},
	}
}

func testCertificate(retailerID string) *cert.Certificate {
	return &cert.Certificate{
		ID:            uuid.NewString(),
		CertificateNo: cert.NewCertificateNo(),
		RetailerID:    retailerID,
		DealerName:    "Tape Dealer",
		DealerLicense: "LIC-001",
		VehicleDetails: cert.VehicleDetails{
			RegistrationNo:   "KA01AB1234",
			ChassisNo:        "CH123",
			VehicleMake:      "Tata",
			VehicleModel:     "407",
			RegistrationYear: 2021,
		},
		OwnerDetails: cert.OwnerDetails{
			OwnerName:     "A Owner",
			ContactNumber: "9999999999",
		},
		FitmentDetails: cert.FitmentDetails{
			Red20mm:  12.5,
			C3Plates: 2,
		},
		FitmentDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Images:      map[cert.ImageTag]string{},
		Status:      cert.StatusDraft,
	}
}

func TestStore_UserLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cred := testCredential(auth.RoleRetailer, "shop1")
	require.NoError(t, s.CreateUser(ctx, cred))
	assert.False(t, cred.CreatedAt.IsZero())

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetUserByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, "shop1", got.Username)
		assert.Equal(t, auth.RoleRetailer, got.Role)
		require.NotNil(t, got.CompanyName)
		assert.Equal(t, "Test Co", *got.CompanyName)
	})

	t.Run("get by username returns password material", func(t *testing.T) {
		got, err := s.GetUserByUsername(ctx, "shop1")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, got.ID)
		assert.Equal(t, []byte{1, 2, 3, 4}, got.PasswordSalt)
		assert.Equal(t, []byte{5, 6, 7, 8}, got.PasswordHash)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := s.GetUserByID(ctx, "nope")
		assert.True(t, errs.IsNotFound(err))

		_, err = s.GetUserByUsername(ctx, "nope")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		dup := testCredential(auth.RoleDistributor, "shop1")
		err := s.CreateUser(ctx, dup)
		assert.True(t, errs.IsConflict(err))
	})
}

func TestStore_ListAndCountUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	admin := testCredential(auth.RoleAdmin, "admin")
	dist := testCredential(auth.RoleDistributor, "dist1")
	ret1 := testCredential(auth.RoleRetailer, "shop1")
	ret2 := testCredential(auth.RoleRetailer, "shop2")
	for _, c := range []*auth.Credential{admin, dist, ret1, ret2} {
		require.NoError(t, s.CreateUser(ctx, c))
	}

	t.Run("scope all", func(t *testing.T) {
		users, err := s.ListUsers(ctx, store.ScopeAll())
		require.NoError(t, err)
		assert.Len(t, users, 4)
	})

	t.Run("scope by ids", func(t *testing.T) {
		users, err := s.ListUsers(ctx, store.ScopeIDs(ret1.ID, ret2.ID))
		require.NoError(t, err)
		require.Len(t, users, 2)
		for _, u := range users {
			assert.Equal(t, auth.RoleRetailer, u.Role)
		}
	})

	t.Run("empty scope is empty result", func(t *testing.T) {
		users, err := s.ListUsers(ctx, store.ScopeIDs())
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("counts", func(t *testing.T) {
		total, err := s.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)

		retailers, err := s.CountUsersByRole(ctx, auth.RoleRetailer)
		require.NoError(t, err)
		assert.Equal(t, int64(2), retailers)
	})

	t.Run("admin exists", func(t *testing.T) {
		exists, err := s.AdminExists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestStore_AdminExistsEmpty(t *testing.T) {
	s := setupTestStore(t)

	exists, err := s.AdminExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_Relationships(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddEdge(ctx, "dist1", "shop1"))
	require.NoError(t, s.AddEdge(ctx, "dist1", "shop2"))
	require.NoError(t, s.AddEdge(ctx, "dist2", "shop1"))

	t.Run("duplicate edge conflicts", func(t *testing.T) {
		err := s.AddEdge(ctx, "dist1", "shop1")
		assert.True(t, errs.IsConflict(err))
	})

	t.Run("retailer ids per distributor", func(t *testing.T) {
		ids, err := s.RetailerIDs(ctx, "dist1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"shop1", "shop2"}, ids)

		ids, err = s.RetailerIDs(ctx, "dist2")
		require.NoError(t, err)
		assert.Equal(t, []string{"shop1"}, ids)
	})

	t.Run("no edges is empty not error", func(t *testing.T) {
		ids, err := s.RetailerIDs(ctx, "dist3")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("edge exists", func(t *testing.T) {
		ok, err := s.EdgeExists(ctx, "dist1", "shop2")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.EdgeExists(ctx, "dist2", "shop2")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_CertificateLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := testCertificate("shop1")
	require.NoError(t, s.CreateCertificate(ctx, c))

	t.Run("get round trip", func(t *testing.T) {
		got, err := s.GetCertificate(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.CertificateNo, got.CertificateNo)
		assert.Equal(t, "shop1", got.RetailerID)
		assert.Equal(t, c.VehicleDetails, got.VehicleDetails)
		assert.Equal(t, c.OwnerDetails, got.OwnerDetails)
		assert.Equal(t, c.FitmentDetails, got.FitmentDetails)
		assert.Equal(t, cert.StatusDraft, got.Status)
		assert.Empty(t, got.Images)
	})

	t.Run("missing certificate is not found", func(t *testing.T) {
		_, err := s.GetCertificate(ctx, "nope")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		dup := testCertificate("shop1")
		dup.ID = c.ID
		err := s.CreateCertificate(ctx, dup)
		assert.True(t, errs.IsConflict(err))
	})
}

func TestStore_ListCertificatesScoped(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c1 := testCertificate("shop1")
	c2 := testCertificate("shop1")
	c3 := testCertificate("shop2")
	for _, c := range []*cert.Certificate{c1, c2, c3} {
		require.NoError(t, s.CreateCertificate(ctx, c))
	}

	all, err := s.ListCertificates(ctx, store.ScopeAll())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := s.ListCertificates(ctx, store.ScopeIDs("shop1"))
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	empty, err := s.ListCertificates(ctx, store.ScopeIDs())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_UpdateCertificateFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := testCertificate("shop1")
	require.NoError(t, s.CreateCertificate(ctx, c))
	created, err := s.GetCertificate(ctx, c.ID)
	require.NoError(t, err)

	t.Run("partial update leaves other fields", func(t *testing.T) {
		submitted := cert.StatusSubmitted
		dealer := "New Dealer"
		got, err := s.UpdateCertificateFields(ctx, c.ID, store.CertificateUpdate{
			DealerName: &dealer,
			Status:     &submitted,
		})
		require.NoError(t, err)
		assert.Equal(t, "New Dealer", got.DealerName)
		assert.Equal(t, cert.StatusSubmitted, got.Status)
		// untouched fields survive
		assert.Equal(t, c.DealerLicense, got.DealerLicense)
		assert.Equal(t, c.VehicleDetails, got.VehicleDetails)
		assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("detail group replacement", func(t *testing.T) {
		fit := cert.FitmentDetails{White50mm: 3.5, C4Plates: 1}
		got, err := s.UpdateCertificateFields(ctx, c.ID, store.CertificateUpdate{
			FitmentDetails: &fit,
		})
		require.NoError(t, err)
		assert.Equal(t, fit, got.FitmentDetails)
		assert.Equal(t, "New Dealer", got.DealerName)
	})

	t.Run("missing certificate is not found", func(t *testing.T) {
		dealer := "x"
		_, err := s.UpdateCertificateFields(ctx, "nope", store.CertificateUpdate{DealerName: &dealer})
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestStore_AttachImage(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := testCertificate("shop1")
	require.NoError(t, s.CreateCertificate(ctx, c))

	require.NoError(t, s.AttachImage(ctx, c.ID, cert.TagFront, "cGF5bG9hZDE="))
	require.NoError(t, s.AttachImage(ctx, c.ID, cert.TagBack, "cGF5bG9hZDI="))

	got, err := s.GetCertificate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, map[cert.ImageTag]string{
		cert.TagFront: "cGF5bG9hZDE=",
		cert.TagBack:  "cGF5bG9hZDI=",
	}, got.Images)

	t.Run("reattach overwrites", func(t *testing.T) {
		require.NoError(t, s.AttachImage(ctx, c.ID, cert.TagFront, "bmV3"))

		got, err := s.GetCertificate(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "bmV3", got.Images[cert.TagFront])
		assert.Equal(t, "cGF5bG9hZDI=", got.Images[cert.TagBack])
	})

	t.Run("bumps updated_at", func(t *testing.T) {
		before, err := s.GetCertificate(ctx, c.ID)
		require.NoError(t, err)

		require.NoError(t, s.AttachImage(ctx, c.ID, cert.TagSide1, "cw=="))

		after, err := s.GetCertificate(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
		assert.Len(t, after.Images, 3)
	})

	t.Run("missing certificate is not found", func(t *testing.T) {
		err := s.AttachImage(ctx, "nope", cert.TagFront, "eA==")
		assert.True(t, errs.IsNotFound(err))
	})
}

func TestStore_CountCertificates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c1 := testCertificate("shop1")
	c2 := testCertificate("shop1")
	c2.Status = cert.StatusSubmitted
	c3 := testCertificate("shop2")
	for _, c := range []*cert.Certificate{c1, c2, c3} {
		require.NoError(t, s.CreateCertificate(ctx, c))
	}

	total, err := s.CountCertificates(ctx, store.ScopeAll(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	submitted := cert.StatusSubmitted
	count, err := s.CountCertificates(ctx, store.ScopeAll(), &submitted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.CountCertificates(ctx, store.ScopeIDs("shop1"), &submitted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.CountCertificates(ctx, store.ScopeIDs("shop2"), &submitted)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = s.CountCertificates(ctx, store.ScopeIDs(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStore_CreateCertificateWithImages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := testCertificate("shop1")
	c.Images = map[cert.ImageTag]string{cert.TagSide2: "aW1n"}
	require.NoError(t, s.CreateCertificate(ctx, c))

	got, err := s.GetCertificate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "aW1n", got.Images[cert.TagSide2])
}
