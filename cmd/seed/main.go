// Command seed loads demo accounts, offers, an order and a review through
// the service layer. Running it twice is harmless.
package main

import (
	"context"
	"flag"
	"fmt"

	"coderr-service/internal/access"
	"coderr-service/internal/api"
	"coderr-service/internal/auth"
	"coderr-service/internal/config"
	"coderr-service/internal/database"
	"coderr-service/internal/logging"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type demoUser struct {
	username string
	email    string
	role     models.Role
}

var (
	businessGuest = demoUser{"andrey", "andrey@coderr.example", models.RoleBusiness}
	customerGuest = demoUser{"kevin", "kevin@coderr.example", models.RoleCustomer}
)

func main() {
	password := flag.String("password", "asdasd", "password of every demo account")
	adminName := flag.String("admin", "admin", "username of the staff account")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	if err := database.Migrate(cfg.DB.URL(), logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	pool, err := database.ConnectDB(ctx, cfg.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	var now string
	if err := pool.QueryRow(ctx, "SELECT NOW()::text").Scan(&now); err != nil {
		logger.Fatal().Err(err).Msg("query failed")
	}
	logger.Info().Str("db_time", now).Msg("connected")

	svc := api.NewServices(pool, cfg, nil, logger)
	s := &seeder{svc: svc, password: *password, logger: logger}

	business := s.account(ctx, businessGuest)
	customer := s.account(ctx, customerGuest)
	if err := s.admin(ctx, repository.NewUserRepository(pool), auth.NewTokens(cfg.Auth.TokenSecret), *adminName); err != nil {
		logger.Fatal().Err(err).Msg("create admin")
	}

	offer := s.offer(ctx, business)
	s.order(ctx, customer, offer)
	s.review(ctx, customer, business)

	info, err := svc.Stats.BaseInfo(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("base info")
	}
	logger.Info().
		Int64("reviews", info.ReviewCount).
		Float64("average_rating", info.AverageRating).
		Int64("business_profiles", info.BusinessProfileCount).
		Int64("offers", info.OfferCount).
		Msg("seed complete")
}

type seeder struct {
	svc      api.Services
	password string
	logger   zerolog.Logger
}

// account logs the demo user in, registering it first when needed.
func (s *seeder) account(ctx context.Context, u demoUser) access.Actor {
	session, err := s.svc.Auth.Login(ctx, service.LoginInput{Username: u.username, Password: s.password})
	if service.IsKind(err, service.KindAuth) {
		session, err = s.svc.Auth.Register(ctx, service.RegisterInput{
			Username:         u.username,
			Email:            u.email,
			Password:         s.password,
			RepeatedPassword: s.password,
			Type:             u.role,
		})
		if err == nil {
			s.logger.Info().Str("username", u.username).Str("type", string(u.role)).Msg("registered")
		}
	}
	if err != nil {
		s.logger.Fatal().Err(err).Str("username", u.username).Msg("account")
	}

	actor, err := s.svc.Auth.Authenticate(ctx, session.Token)
	if err != nil {
		s.logger.Fatal().Err(err).Str("username", u.username).Msg("authenticate")
	}
	return actor
}

// admin creates the staff account directly; registration never grants staff.
func (s *seeder) admin(ctx context.Context, users repository.UserRepository, tokens *auth.Tokens, username string) error {
	taken, err := users.UsernameTaken(ctx, username)
	if err != nil || taken {
		return err
	}

	hash, err := auth.HashPassword(s.password)
	if err != nil {
		return err
	}
	acct := &models.Account{
		User: models.User{
			Username:     username,
			Email:        username + "@coderr.example",
			PasswordHash: hash,
			IsStaff:      true,
		},
		Profile: models.Profile{Type: models.RoleCustomer},
	}
	if err := users.CreateAccount(ctx, acct, tokens.Mint); err != nil {
		return err
	}

	s.logger.Info().Str("username", username).Int64("user_id", acct.User.ID).Msg("staff account created")
	return nil
}

func (s *seeder) offer(ctx context.Context, owner access.Actor) *models.Offer {
	q, err := s.svc.Offers.ParseQuery(nil)
	if err != nil {
		s.logger.Fatal().Err(err).Msg("offer query")
	}
	q.Filter.CreatorID = &owner.UserID

	existing, err := s.svc.Offers.List(ctx, q)
	if err != nil {
		s.logger.Fatal().Err(err).Msg("list offers")
	}
	if existing.Count > 0 {
		offer, err := s.svc.Offers.Get(ctx, existing.Offers[0].ID)
		if err != nil {
			s.logger.Fatal().Err(err).Msg("get offer")
		}
		return offer
	}

	tier := func(t models.OfferType, price int64, days, revisions int, features ...string) service.DetailInput {
		p := decimal.NewFromInt(price)
		return service.DetailInput{
			Title:              fmt.Sprintf("%s Design", t),
			Revisions:          &revisions,
			DeliveryTimeInDays: &days,
			Price:              &p,
			Features:           features,
			OfferType:          t,
		}
	}

	offer, err := s.svc.Offers.Create(ctx, owner, service.CreateOfferInput{
		Title:       "Grafikdesign-Paket",
		Description: "Ein umfassendes Grafikdesign-Paket für Unternehmen.",
		Details: []service.DetailInput{
			tier(models.OfferBasic, 100, 5, 2, "Logo Design", "Visitenkarte"),
			tier(models.OfferStandard, 200, 7, 5, "Logo Design", "Visitenkarte", "Briefpapier"),
			tier(models.OfferPremium, 500, 10, -1, "Logo Design", "Visitenkarte", "Briefpapier", "Flyer"),
		},
	})
	if err != nil {
		s.logger.Fatal().Err(err).Msg("create offer")
	}
	s.logger.Info().Int64("offer_id", offer.ID).Msg("offer created")
	return offer
}

func (s *seeder) order(ctx context.Context, customer access.Actor, offer *models.Offer) {
	orders, err := s.svc.Orders.List(ctx, customer)
	if err != nil {
		s.logger.Fatal().Err(err).Msg("list orders")
	}
	if len(orders) > 0 || len(offer.Details) == 0 {
		return
	}

	order, err := s.svc.Orders.Create(ctx, customer, service.CreateOrderInput{OfferDetailID: &offer.Details[0].ID})
	if err != nil {
		s.logger.Fatal().Err(err).Msg("create order")
	}
	s.logger.Info().Int64("order_id", order.ID).Str("price", order.Price.String()).Msg("order created")
}

func (s *seeder) review(ctx context.Context, customer, business access.Actor) {
	rating := 5
	review, err := s.svc.Reviews.Create(ctx, customer, service.CreateReviewInput{
		BusinessUser: &business.UserID,
		Rating:       &rating,
		Description:  "Alles war toll!",
	})
	if service.IsKind(err, service.KindValidation) {
		// already reviewed on an earlier run
		return
	}
	if err != nil {
		s.logger.Fatal().Err(err).Msg("create review")
	}
	s.logger.Info().Int64("review_id", review.ID).Msg("review created")
}
