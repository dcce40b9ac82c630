package service

import (
	"testing"

	"coderr-service/internal/access"
	"coderr-service/internal/auth"
	"coderr-service/internal/config"
	"coderr-service/internal/models"
	"coderr-service/internal/repository/repotest"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// env wires every service over one in-memory store.
type env struct {
	db       *repotest.Store
	auth     *AuthService
	profiles *ProfileService
	offers   *OfferService
	orders   *OrderService
	reviews  *ReviewService
}

func newEnv(t *testing.T, catalog config.CatalogConfig) *env {
	t.Helper()
	if catalog.PageSize == 0 {
		catalog.PageSize = 6
	}
	if catalog.MaxPageSize == 0 {
		catalog.MaxPageSize = 100
	}
	db := repotest.New()
	logger := zerolog.Nop()
	return &env{
		db:       db,
		auth:     NewAuthService(db.Users(), db.Tokens(), auth.NewTokens("test-secret"), logger),
		profiles: NewProfileService(db.Users(), db.Profiles(), logger),
		offers:   NewOfferService(db.Offers(), catalog, logger),
		orders:   NewOrderService(db.Orders(), db.Offers(), db.Users(), logger),
		reviews:  NewReviewService(db.Reviews(), db.Users(), logger),
	}
}

func (e *env) addUser(username string, role models.Role, staff bool) access.Actor {
	id := e.db.AddUser(username, role, staff)
	return access.Actor{UserID: id, Role: role, IsStaff: staff}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func tierInput(t models.OfferType, p string, days int) DetailInput {
	return DetailInput{
		Title:              "Design " + string(t),
		Revisions:          intPtr(2),
		DeliveryTimeInDays: intPtr(days),
		Price:              price(p),
		Features:           []string{"Logo"},
		OfferType:          t,
	}
}

func validOffer() CreateOfferInput {
	return CreateOfferInput{
		Title:       "Grafikdesign-Paket",
		Description: "Ein umfassendes Grafikdesign-Paket.",
		Details: []DetailInput{
			tierInput(models.OfferBasic, "100", 5),
			tierInput(models.OfferStandard, "200", 7),
			tierInput(models.OfferPremium, "500", 10),
		},
	}
}

func requireKind(t *testing.T, err error, k Kind) *Error {
	t.Helper()
	require.Error(t, err)
	se, ok := err.(*Error)
	require.True(t, ok, "expected *service.Error, got %T: %v", err, err)
	require.Equal(t, k, se.Kind, se.Error())
	return se
}
