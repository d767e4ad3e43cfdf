package services

import (
	"context"
	"sort"
	"sync"

	"badgekit/internal/issuer"
	"badgekit/internal/models"
	"badgekit/internal/repositories"
)

// ===============================
// DRAFT STORE FAKES
// ===============================

// fakeBadgeRepo is an in-memory draft store with the same write semantics as
// the PostgreSQL repository
type fakeBadgeRepo struct {
	mu       sync.Mutex
	rows     map[int64]*models.Badge
	criteria map[int64][]*models.Criterion
	images   *fakeImageRepo
	nextID   int64
	nextCrit int64

	putErr      error
	getErr      error
	updateErr   error
	criteriaErr error
	putCalls    int
}

func newFakeBadgeRepo(images *fakeImageRepo) *fakeBadgeRepo {
	return &fakeBadgeRepo{
		rows:     make(map[int64]*models.Badge),
		criteria: make(map[int64][]*models.Criterion),
		images:   images,
	}
}

func (r *fakeBadgeRepo) Put(ctx context.Context, badge *models.Badge) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.putCalls++
	if r.putErr != nil {
		return 0, r.putErr
	}

	if badge.ID == 0 {
		r.nextID++
		row := *badge
		row.ID = r.nextID
		row.Tags = append([]string{}, badge.Tags...)
		row.Criteria = nil
		row.Image = nil
		row.ImageID = nil
		row.Published = false
		row.Archived = false
		r.rows[row.ID] = &row
		return row.ID, nil
	}

	existing, ok := r.rows[badge.ID]
	if !ok {
		return 0, repositories.ErrBadgeNotFound
	}

	existing.Name = badge.Name
	existing.Description = badge.Description
	existing.Tags = append([]string{}, badge.Tags...)
	existing.IssuerURL = badge.IssuerURL
	existing.EarnerDescription = badge.EarnerDescription
	existing.ConsumerDescription = badge.ConsumerDescription
	existing.RubricURL = badge.RubricURL
	existing.TimeValue = badge.TimeValue
	existing.TimeUnits = badge.TimeUnits
	existing.Limit = badge.Limit
	existing.Unique = badge.Unique
	existing.MultiClaimCode = badge.MultiClaimCode
	return badge.ID, nil
}

func (r *fakeBadgeRepo) GetByID(ctx context.Context, id int64, opts models.GetOptions) (*models.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}

	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}

	out := *row
	out.Tags = append([]string{}, row.Tags...)
	if row.ImageID != nil {
		imageID := *row.ImageID
		out.ImageID = &imageID
	}

	if opts.Relationships {
		out.Criteria = make([]*models.Criterion, 0, len(r.criteria[id]))
		for _, c := range r.criteria[id] {
			cc := *c
			out.Criteria = append(out.Criteria, &cc)
		}
		if out.ImageID != nil {
			out.Image, _ = r.images.GetByID(ctx, *out.ImageID)
		}
	}

	return &out, nil
}

func (r *fakeBadgeRepo) Update(ctx context.Context, update *models.BadgeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}

	row, ok := r.rows[update.ID]
	if !ok {
		return repositories.ErrBadgeNotFound
	}

	if update.ImageID != nil {
		if row.ImageID != nil {
			return repositories.ErrImageAlreadyAttached
		}
		imageID := *update.ImageID
		row.ImageID = &imageID
	}
	if update.Published != nil {
		row.Published = *update.Published
	}
	if update.Slug != nil {
		row.Slug = *update.Slug
	}

	return nil
}

func (r *fakeBadgeRepo) SetCriteria(ctx context.Context, badgeID int64, criteria []*models.Criterion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.criteriaErr != nil {
		return r.criteriaErr
	}

	owned := make(map[int64]bool)
	for _, c := range r.criteria[badgeID] {
		owned[*c.ID] = true
	}

	stored := make([]*models.Criterion, 0, len(criteria))
	for _, c := range criteria {
		cc := *c
		cc.BadgeID = badgeID
		if cc.ID == nil || !owned[*cc.ID] {
			r.nextCrit++
			id := r.nextCrit
			cc.ID = &id
		}
		stored = append(stored, &cc)
	}

	sort.Slice(stored, func(i, j int) bool { return *stored[i].ID < *stored[j].ID })
	r.criteria[badgeID] = stored
	return nil
}

func (r *fakeBadgeRepo) row(id int64) *models.Badge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *fakeBadgeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeImageRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.Image
	nextID int64
	putErr error
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{rows: make(map[int64]*models.Image)}
}

func (r *fakeImageRepo) Put(ctx context.Context, image *models.Image) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.putErr != nil {
		return 0, r.putErr
	}

	stored := *image
	stored.Data = append([]byte(nil), image.Data...)

	if stored.ID == 0 {
		r.nextID++
		stored.ID = r.nextID
	} else if _, ok := r.rows[stored.ID]; !ok {
		return 0, repositories.ErrImageNotFound
	}

	r.rows[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeImageRepo) GetByID(ctx context.Context, id int64) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	image, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	out := *image
	return &out, nil
}

func (r *fakeImageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ===============================
// ISSUER FAKES
// ===============================

type fakeIssuer struct {
	mu      sync.Mutex
	badges  map[string]*issuer.ExternalBadge
	created []*issuer.ExternalBadge
	updated []*issuer.ExternalBadge
	awards  []*issuer.AwardRequest
	gets    int

	getErr    error
	createErr error
	updateErr error
	awardErr  error
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{badges: make(map[string]*issuer.ExternalBadge)}
}

func (f *fakeIssuer) GetBadge(ctx context.Context, slug string) (*issuer.ExternalBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}

	badge, ok := f.badges[slug]
	if !ok {
		return nil, &issuer.APIError{StatusCode: 404, Method: "GET", Path: "/v2/badges/" + slug}
	}
	out := *badge
	return &out, nil
}

func (f *fakeIssuer) CreateBadge(ctx context.Context, badge *issuer.ExternalBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, badge)
	f.badges[badge.Slug] = badge
	return nil
}

func (f *fakeIssuer) UpdateBadge(ctx context.Context, badge *issuer.ExternalBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, badge)
	f.badges[badge.Slug] = badge
	return nil
}

func (f *fakeIssuer) GrantAward(ctx context.Context, slug string, award *issuer.AwardRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.awards = append(f.awards, award)
	return f.awardErr
}

func (f *fakeIssuer) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

type fakeImageHost struct {
	uploads []string
	url     string
	err     error
}

func (h *fakeImageHost) Upload(ctx context.Context, name string, image *models.Image) (string, error) {
	h.uploads = append(h.uploads, name)
	if h.err != nil {
		return "", h.err
	}
	return h.url, nil
}
