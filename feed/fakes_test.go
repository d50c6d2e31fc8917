package feed

import (
	"context"
	"errors"
	"sort"
	"sync"

	"postfeed/apperr"
	"postfeed/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errStoreDown = errors.New("store unreachable")

type memPosts struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]models.Post
	users     *memUsers
	failCount bool
	failWrite bool
	writes    int
}

func newMemPosts(users *memUsers) *memPosts {
	return &memPosts{byID: map[primitive.ObjectID]models.Post{}, users: users}
}

func (m *memPosts) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount {
		return 0, errStoreDown
	}
	return int64(len(m.byID)), nil
}

func (m *memPosts) List(_ context.Context, skip, limit int64) ([]models.FeedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.Post, 0, len(m.byID))
	for _, p := range m.byID {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := []models.FeedPost{}
	for i := skip; i < int64(len(all)) && i < skip+limit; i++ {
		p := all[i]
		out = append(out, p.WithCreator(m.users.summary(p.Creator)))
	}
	return out, nil
}

func (m *memPosts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (m *memPosts) Insert(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errStoreDown
	}
	m.writes++
	m.byID[post.ID] = *post
	return nil
}

func (m *memPosts) Update(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errStoreDown
	}
	if _, ok := m.byID[post.ID]; !ok {
		return apperr.ErrNotFound
	}
	m.writes++
	m.byID[post.ID] = *post
	return nil
}

func (m *memPosts) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	m.writes++
	delete(m.byID, id)
	return nil
}

type memUsers struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*models.User
	failAdd bool
	failDel bool
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]*models.User{}}
}

func (m *memUsers) add(name string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: primitive.NewObjectID(), Name: name, Email: name + "@test.com"}
	m.byID[u.ID] = u
	return u
}

func (m *memUsers) summary(id primitive.ObjectID) models.Creator {
	if u, ok := m.byID[id]; ok {
		return u.Summary()
	}
	return models.Creator{}
}

func (m *memUsers) posts(id primitive.ObjectID) []primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]primitive.ObjectID(nil), m.byID[id].Posts...)
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) AddPost(_ context.Context, userID, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd {
		return errStoreDown
	}
	u, ok := m.byID[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Posts = append(u.Posts, postID)
	return nil
}

func (m *memUsers) RemovePost(_ context.Context, userID, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel {
		return errStoreDown
	}
	u, ok := m.byID[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	kept := u.Posts[:0]
	for _, id := range u.Posts {
		if id != postID {
			kept = append(kept, id)
		}
	}
	u.Posts = kept
	return nil
}

type imageLog struct {
	mu      sync.Mutex
	removed []string
}

func (l *imageLog) Remove(ref string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, ref)
}

func (l *imageLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.removed...)
}

type emitted struct {
	channel string
	event   models.PostEvent
}

type busLog struct {
	mu     sync.Mutex
	events []emitted
	fail   bool
}

func (b *busLog) Emit(_ context.Context, channel string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("bus down")
	}
	b.events = append(b.events, emitted{channel: channel, event: payload.(models.PostEvent)})
	return nil
}

func (b *busLog) list() []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]emitted(nil), b.events...)
}

type fixture struct {
	posts  *memPosts
	users  *memUsers
	images *imageLog
	bus    *busLog
	svc    *Service
}

func newFixture() *fixture {
	users := newMemUsers()
	f := &fixture{
		users:  users,
		posts:  newMemPosts(users),
		images: &imageLog{},
		bus:    &busLog{},
	}
	f.svc = NewService(f.posts, f.users, f.images, f.bus, DefaultPageSize)
	return f
}
