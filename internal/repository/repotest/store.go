// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"coderr-service/internal/models"
	"coderr-service/internal/repository"
)

// Store is an in-memory stand-in for the Postgres repositories. Every
// repository it hands out shares the same data.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	ticks    int64
	users    map[int64]*models.User
	profiles map[int64]*models.Profile
	tokens   map[int64]string
	offers   map[int64]*models.Offer
	orders   map[int64]*models.Order
	reviews  map[int64]*models.Review
}

func New() *Store {
	return &Store{
		users:    map[int64]*models.User{},
		profiles: map[int64]*models.Profile{},
		tokens:   map[int64]string{},
		offers:   map[int64]*models.Offer{},
		orders:   map[int64]*models.Order{},
		reviews:  map[int64]*models.Review{},
	}
}

func (db *Store) id() int64 {
	db.nextID++
	return db.nextID
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// now is a clock that advances one second per call, so writes are ordered.
func (db *Store) now() time.Time {
	db.ticks++
	return epoch.Add(time.Duration(db.ticks) * time.Second)
}

func (db *Store) Users() repository.UserRepository       { return fakeUsers{db} }
func (db *Store) Tokens() repository.TokenRepository     { return fakeTokens{db} }
func (db *Store) Profiles() repository.ProfileRepository { return fakeProfiles{db} }
func (db *Store) Offers() repository.OfferRepository     { return fakeOffers{db} }
func (db *Store) Orders() repository.OrderRepository     { return fakeOrders{db} }
func (db *Store) Reviews() repository.ReviewRepository   { return fakeReviews{db} }
func (db *Store) Stats() repository.StatsRepository      { return fakeStats{db} }

// AddUser stores a user and its profile directly, skipping password hashing.
func (db *Store) AddUser(username string, role models.Role, staff bool) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := db.id()
	db.users[id] = &models.User{ID: id, Username: username, Email: username + "@example.com", IsStaff: staff}
	db.profiles[id] = &models.Profile{UserID: id, Username: username, Type: role}
	return id
}

// SetToken stores key as the token of userID.
func (db *Store) SetToken(userID int64, key string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tokens[userID] = key
}

type fakeStats struct{ db *Store }

func (f fakeStats) BaseInfo(ctx context.Context) (*models.BaseInfo, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	info := &models.BaseInfo{
		ReviewCount: int64(len(f.db.reviews)),
		OfferCount:  int64(len(f.db.offers)),
	}
	var sum int
	for _, r := range f.db.reviews {
		sum += r.Rating
	}
	if info.ReviewCount > 0 {
		info.AverageRating = repository.RoundRating(float64(sum) / float64(info.ReviewCount))
	}
	for _, p := range f.db.profiles {
		if p.Type == models.RoleBusiness {
			info.BusinessProfileCount++
		}
	}
	return info, nil
}

type fakeUsers struct{ db *Store }

func (f fakeUsers) CreateAccount(ctx context.Context, acct *models.Account, mint repository.TokenMinter) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Username == acct.User.Username {
			return &repository.ConflictError{Field: "username"}
		}
	}
	acct.User.ID = f.db.id()
	key, err := mint(acct.User.ID)
	if err != nil {
		return err
	}
	u := acct.User
	f.db.users[u.ID] = &u
	acct.Profile.UserID = u.ID
	acct.Profile.Username = u.Username
	acct.Profile.Email = u.Email
	p := acct.Profile
	f.db.profiles[u.ID] = &p
	f.db.tokens[u.ID] = key
	acct.Token = key
	return nil
}

func (f fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

func (f fakeUsers) EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Email == email && u.ID != exceptUserID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) GetRole(ctx context.Context, id int64) (*models.UserRole, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	role := models.UserRole{UserID: id, IsStaff: u.IsStaff}
	if p, ok := f.db.profiles[id]; ok {
		role.Role = p.Type
	}
	return &role, nil
}

type fakeTokens struct{ db *Store }

func (f fakeTokens) GetOrCreate(ctx context.Context, userID int64, mint repository.TokenMinter) (string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if key, ok := f.db.tokens[userID]; ok {
		return key, nil
	}
	key, err := mint(userID)
	if err != nil {
		return "", err
	}
	f.db.tokens[userID] = key
	return key, nil
}

func (f fakeTokens) Lookup(ctx context.Context, key string) (*models.UserRole, error) {
	f.db.mu.Lock()
	var userID int64
	for id, k := range f.db.tokens {
		if k == key {
			userID = id
		}
	}
	f.db.mu.Unlock()
	if userID == 0 {
		return nil, repository.ErrNotFound
	}
	return fakeUsers(f).GetRole(ctx, userID)
}

func (f fakeTokens) Delete(ctx context.Context, userID int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.tokens[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.tokens, userID)
	return nil
}

type fakeProfiles struct{ db *Store }

func (f fakeProfiles) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	p, ok := f.db.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	c.Email = f.db.users[userID].Email
	return &c, nil
}

func (f fakeProfiles) ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Profile
	for _, p := range f.db.profiles {
		if p.Type == role {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f fakeProfiles) Update(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	f.db.mu.Lock()
	p, ok := f.db.profiles[userID]
	if !ok {
		f.db.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.FirstName, patch.FirstName)
	set(&p.LastName, patch.LastName)
	set(&p.Bio, patch.Bio)
	set(&p.Location, patch.Location)
	set(&p.Tel, patch.Tel)
	set(&p.Description, patch.Description)
	set(&p.WorkingHours, patch.WorkingHours)
	set(&p.File, patch.File)
	set(&f.db.users[userID].Email, patch.Email)
	f.db.mu.Unlock()
	return f.GetByUserID(ctx, userID)
}

type fakeOffers struct{ db *Store }

func (f fakeOffers) Create(ctx context.Context, o *models.Offer) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o.ID = f.db.id()
	o.CreatedAt = f.db.now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Details {
		o.Details[i].ID = f.db.id()
		o.Details[i].OfferID = o.ID
	}
	c := *o
	c.Details = slices.Clone(o.Details)
	f.db.offers[o.ID] = &c
	return nil
}

func (f fakeOffers) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o, ok := f.db.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := f.db.withAggregates(o)
	return &c, nil
}

// withAggregates copies o and fills the fields list queries compute in SQL.
// Callers hold the lock.
func (db *Store) withAggregates(o *models.Offer) models.Offer {
	c := *o
	c.Details = slices.Clone(o.Details)
	c.MinPrice, c.MinDeliveryTime = c.Minimums()
	c.DetailIDs = make([]int64, 0, len(c.Details))
	for _, d := range c.Details {
		c.DetailIDs = append(c.DetailIDs, d.ID)
	}
	if u, ok := db.users[o.UserID]; ok {
		c.Owner.Username = u.Username
	}
	if p, ok := db.profiles[o.UserID]; ok {
		c.Owner.FirstName = p.FirstName
		c.Owner.LastName = p.LastName
	}
	return c
}

func (f fakeOffers) List(ctx context.Context, filter repository.OfferFilter) ([]models.Offer, int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var all []models.Offer
	for _, o := range f.db.offers {
		c := f.db.withAggregates(o)
		if offerMatches(c, filter) {
			all = append(all, c)
		}
	}
	slices.SortFunc(all, offerOrder(filter.Ordering))
	total := len(all)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	return all[filter.Offset:end], total, nil
}

// offerMatches applies the list filters to an offer with its aggregates
// filled. Offers without details never pass a range filter.
func offerMatches(o models.Offer, f repository.OfferFilter) bool {
	hasDetails := len(o.Details) > 0
	if f.CreatorID != nil && o.UserID != *f.CreatorID {
		return false
	}
	if f.MinPrice != nil && (!hasDetails || o.MinPrice.LessThan(*f.MinPrice)) {
		return false
	}
	if f.MaxDeliveryTime != nil && (!hasDetails || o.MinDeliveryTime > *f.MaxDeliveryTime) {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		if !strings.Contains(strings.ToLower(o.Title), s) && !strings.Contains(strings.ToLower(o.Description), s) {
			return false
		}
	}
	return true
}

// offerOrder mirrors the SQL orderings, including NULLS LAST for offers
// without details when ordering by price.
func offerOrder(ordering string) func(a, b models.Offer) int {
	byPrice := func(a, b models.Offer, desc bool) int {
		aa, bb := len(a.Details) > 0, len(b.Details) > 0
		switch {
		case aa && !bb:
			return -1
		case !aa && bb:
			return 1
		}
		c := cmp.Or(a.MinPrice.Cmp(b.MinPrice), cmp.Compare(a.ID, b.ID))
		if desc {
			return -c
		}
		return c
	}

	switch ordering {
	case repository.OrderUpdatedAsc:
		return func(a, b models.Offer) int {
			return cmp.Or(a.UpdatedAt.Compare(b.UpdatedAt), cmp.Compare(a.ID, b.ID))
		}
	case repository.OrderPriceAsc:
		return func(a, b models.Offer) int { return byPrice(a, b, false) }
	case repository.OrderPriceDesc:
		return func(a, b models.Offer) int { return byPrice(a, b, true) }
	default:
		return func(a, b models.Offer) int {
			return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(b.ID, a.ID))
		}
	}
}

func (f fakeOffers) Update(ctx context.Context, id int64, patch models.OfferPatch, check repository.DetailCheck) (*models.Offer, error) {
	f.db.mu.Lock()
	o, ok := f.db.offers[id]
	if !ok {
		f.db.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	next := *o
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Details != nil {
		plan := repository.ReconcileByID(o.Details, patch.Details,
			func(d models.OfferDetail) int64 { return d.ID },
			func(p models.DetailPatch) (int64, bool) { return p.ID, p.ID > 0 },
		)
		var details []models.OfferDetail
		for _, m := range plan.Matched {
			d := m.Existing
			m.Incoming.Apply(&d)
			details = append(details, d)
		}
		for _, p := range plan.Created {
			var d models.OfferDetail
			p.Apply(&d)
			details = append(details, d)
		}
		if check != nil {
			if err := check(details, plan.Created); err != nil {
				f.db.mu.Unlock()
				return nil, err
			}
		}
		for i := range details {
			if details[i].ID == 0 {
				details[i].ID = f.db.id()
			}
		}
		next.Details = details
	}
	next.UpdatedAt = f.db.now()
	f.db.offers[id] = &next
	f.db.mu.Unlock()
	return f.GetByID(ctx, id)
}

func (f fakeOffers) Delete(ctx context.Context, id int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.offers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.offers, id)
	return nil
}

func (f fakeOffers) GetOwnerID(ctx context.Context, id int64) (int64, error) {
	o, err := f.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return o.UserID, nil
}

func (f fakeOffers) GetDetail(ctx context.Context, id int64) (*models.OfferDetail, error) {
	src, err := f.GetDetailSource(ctx, id)
	if err != nil {
		return nil, err
	}
	return &src.Detail, nil
}

func (f fakeOffers) GetDetailSource(ctx context.Context, id int64) (*models.DetailSource, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, o := range f.db.offers {
		for _, d := range o.Details {
			if d.ID == id {
				d.Features = slices.Clone(d.Features)
				return &models.DetailSource{Detail: d, OwnerUserID: o.UserID}, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

type fakeOrders struct{ db *Store }

func (f fakeOrders) Create(ctx context.Context, o *models.Order) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o.ID = f.db.id()
	c := *o
	f.db.orders[o.ID] = &c
	return nil
}

func (f fakeOrders) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o, ok := f.db.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (f fakeOrders) ListForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Order
	for _, o := range f.db.orders {
		if o.CustomerUserID == userID || o.BusinessUserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeOrders) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	f.db.mu.Lock()
	o, ok := f.db.orders[id]
	if ok {
		o.Status = status
	}
	f.db.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.GetByID(ctx, id)
}

func (f fakeOrders) Delete(ctx context.Context, id int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.orders, id)
	return nil
}

func (f fakeOrders) CountByBusiness(ctx context.Context, businessUserID int64, status models.OrderStatus) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for _, o := range f.db.orders {
		if o.BusinessUserID == businessUserID && o.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeReviews struct{ db *Store }

func (f fakeReviews) Create(ctx context.Context, r *models.Review) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.reviews {
		if existing.BusinessUserID == r.BusinessUserID && existing.ReviewerID == r.ReviewerID {
			return &repository.ConflictError{Field: "business_user"}
		}
	}
	r.ID = f.db.id()
	c := *r
	f.db.reviews[r.ID] = &c
	return nil
}

func (f fakeReviews) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	r, ok := f.db.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f fakeReviews) List(ctx context.Context, filter repository.ReviewFilter) ([]models.Review, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Review
	for _, r := range f.db.reviews {
		if r.ReviewerID != filter.ParticipantID && r.BusinessUserID != filter.ParticipantID {
			continue
		}
		if filter.BusinessUserID != nil && r.BusinessUserID != *filter.BusinessUserID {
			continue
		}
		if filter.ReviewerID != nil && r.ReviewerID != *filter.ReviewerID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeReviews) Exists(ctx context.Context, businessUserID, reviewerID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range f.db.reviews {
		if r.BusinessUserID == businessUserID && r.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeReviews) Update(ctx context.Context, id int64, patch models.ReviewPatch) (*models.Review, error) {
	f.db.mu.Lock()
	r, ok := f.db.reviews[id]
	if ok {
		if patch.Rating != nil {
			r.Rating = *patch.Rating
		}
		if patch.Description != nil {
			r.Description = *patch.Description
		}
	}
	f.db.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.GetByID(ctx, id)
}

func (f fakeReviews) Delete(ctx context.Context, id int64) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.reviews, id)
	return nil
}
