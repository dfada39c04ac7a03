package auditsvc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	entries   []auditlog.Entry
	insertErr error
	lastQuery pagination.Query
	cutoff    time.Time
	since     time.Time
}

func (f *fakeRepo) Insert(_ context.Context, e auditlog.Entry) (auditlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return auditlog.Entry{}, f.insertErr
	}
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)

	return e, nil
}

func (f *fakeRepo) Find(_ context.Context, q pagination.Query) ([]auditlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q

	return f.entries, nil
}

func (f *fakeRepo) Count(_ context.Context, _ pagination.Query) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return int64(len(f.entries)), nil
}

func (f *fakeRepo) CountByAction(context.Context) (map[auditlog.Action]int64, error) {
	return map[auditlog.Action]int64{auditlog.ActionCreate: 2, auditlog.ActionDelete: 1}, nil
}

func (f *fakeRepo) CountByEntityType(context.Context) (map[auditlog.EntityType]int64, error) {
	return map[auditlog.EntityType]int64{auditlog.EntityUser: 3}, nil
}

func (f *fakeRepo) CountSince(_ context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since

	return 1, nil
}

func (f *fakeRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff

	kept := f.entries[:0]
	var deleted int64
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept

	return deleted, nil
}

type fakePublisher struct {
	published []auditlog.Entry
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, entries ...auditlog.Entry) error {
	p.published = append(p.published, entries...)

	return p.err
}

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newService(repo *fakeRepo, opts ...option) *AuditService {
	opts = append([]option{
		WithAuditRepository(repo),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	s := MustNewAuditService(opts...)
	s.now = func() time.Time { return fixedNow }

	return s
}

func TestRecordSanitizesAndStores(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	s := newService(repo, WithPublisher(pub))

	id := int64(5)
	entry := s.Record(context.Background(), auditlog.Event{
		Action:     auditlog.ActionCreate,
		EntityType: auditlog.EntityUser,
		EntityID:   &id,
		Provenance: auditlog.Provenance{IP: "10.0.0.1"},
		NewData:    auditlog.Snapshot{"email": "a@b.c", "password": "hunter2"},
	})

	require.NotNil(t, entry)
	assert.Equal(t, int64(1), entry.ID)
	assert.Equal(t, "CREATE USER", entry.Description)
	assert.Equal(t, RedactionMarker, entry.NewData["password"])
	assert.Equal(t, "a@b.c", entry.NewData["email"])
	require.NotNil(t, entry.UserIP)
	assert.Equal(t, "10.0.0.1", *entry.UserIP)
	assert.Nil(t, entry.UserAgent)
	assert.Equal(t, fixedNow, entry.CreatedAt)
	require.Len(t, pub.published, 1)
	assert.Equal(t, entry.ID, pub.published[0].ID)
}

func TestRecordAbsorbsFailures(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("connection reset")}
	s := newService(repo)

	entry := s.Record(context.Background(), auditlog.Event{
		Action:     auditlog.ActionDelete,
		EntityType: auditlog.EntityProduct,
	})
	assert.Nil(t, entry)

	entry = s.Record(context.Background(), auditlog.Event{Action: "EXPLODE", EntityType: auditlog.EntityProduct})
	assert.Nil(t, entry)
}

func TestRecordIgnoresPublishFailure(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo, WithPublisher(&fakePublisher{err: errors.New("broker down")}))

	entry := s.LogCreate(context.Background(), auditlog.EntityOrder, 3, map[string]any{"status": "pending"},
		auditlog.Actor{}, auditlog.Provenance{})
	require.NotNil(t, entry)
	assert.Equal(t, "ORDER 3 created", entry.Description)
	assert.Len(t, repo.entries, 1)
}

func TestHelpers(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo)
	ctx := context.Background()
	actor := auditlog.Actor{}

	upd := s.LogUpdate(ctx, auditlog.EntityUser, 1, map[string]any{"name": "Old"}, map[string]any{"name": "New"}, actor, auditlog.Provenance{})
	require.NotNil(t, upd)
	assert.Equal(t, auditlog.ActionUpdate, upd.Action)
	assert.Equal(t, "Old", upd.OldData["name"])
	assert.Equal(t, "New", upd.NewData["name"])

	del := s.LogDelete(ctx, auditlog.EntityUser, 1, map[string]any{"name": "New"}, actor, auditlog.Provenance{})
	require.NotNil(t, del)
	assert.Nil(t, del.NewData)

	soft := s.LogSoftDelete(ctx, auditlog.EntityProduct, 2, map[string]any{"name": "Lamp"}, actor, auditlog.Provenance{})
	require.NotNil(t, soft)
	assert.Equal(t, auditlog.ActionSoftDelete, soft.Action)

	restore := s.LogRestore(ctx, auditlog.EntityProduct, 2, map[string]any{"name": "Lamp"}, actor, auditlog.Provenance{})
	require.NotNil(t, restore)
	assert.Equal(t, auditlog.ActionRestore, restore.Action)

	login := s.LogLogin(ctx, 7, "ann", auditlog.Provenance{UserAgent: "curl"}, auditlog.Snapshot{"method": "password"})
	require.NotNil(t, login)
	assert.Equal(t, auditlog.EntityAuth, login.EntityType)
	assert.Nil(t, login.EntityID)
	assert.Equal(t, int64(7), *login.UserID)
	assert.Equal(t, "password", login.Metadata["method"])
}

func TestFindAllDefaults(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo)

	_, err := s.FindAll(context.Background(), pagination.Request{Search: "created"})
	require.NoError(t, err)
	assert.Equal(t, "createdAt", repo.lastQuery.SortBy)
	assert.True(t, repo.lastQuery.SortDesc)
	assert.Equal(t, []string{"description", "userName"}, repo.lastQuery.SearchFields)
	assert.Equal(t, "created", repo.lastQuery.Search)
}

func TestFindByEntityAndUser(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo)

	_, err := s.FindByEntity(context.Background(), auditlog.EntityOrder, 9, pagination.Request{})
	require.NoError(t, err)
	assert.Equal(t, []pagination.Filter{
		pagination.Eq("entityType", "ORDER"),
		pagination.Eq("entityId", int64(9)),
	}, repo.lastQuery.Filters)

	_, err = s.FindByEntity(context.Background(), "INVOICE", 9, pagination.Request{})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = s.FindByUser(context.Background(), 4, pagination.Request{})
	require.NoError(t, err)
	assert.Equal(t, []pagination.Filter{pagination.Eq("userId", int64(4))}, repo.lastQuery.Filters)
}

func TestStatistics(t *testing.T) {
	repo := &fakeRepo{entries: make([]auditlog.Entry, 3)}
	s := newService(repo)

	stats, err := s.Statistics(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByAction[auditlog.ActionCreate])
	assert.Equal(t, int64(3), stats.ByEntityType[auditlog.EntityUser])
	assert.Equal(t, int64(1), stats.RecentActivity)
	assert.Equal(t, DefaultStatisticsDays, stats.Days)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), repo.since)

	_, err = s.Statistics(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), repo.since)
}

func TestPurgeDeletesOlderEntries(t *testing.T) {
	repo := &fakeRepo{entries: []auditlog.Entry{
		{ID: 1, CreatedAt: fixedNow.AddDate(0, 0, -40)},
		{ID: 2, CreatedAt: fixedNow.AddDate(0, 0, -31)},
		{ID: 3, CreatedAt: fixedNow.AddDate(0, 0, -29)},
		{ID: 4, CreatedAt: fixedNow},
	}}
	s := newService(repo)

	deleted, err := s.Purge(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Len(t, repo.entries, 2)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), repo.cutoff)

	_, err = s.Purge(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.AddDate(0, 0, -365), repo.cutoff)

	_, err = s.Purge(context.Background(), -1)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestMustNewAuditServiceRequiresRepository(t *testing.T) {
	assert.Panics(t, func() { MustNewAuditService() })
}
