package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory implements Store with plain maps. It mirrors the Postgres
// semantics (uniqueness, cascade deletes, ordering) closely enough
// that the handlers and the sweep can be exercised without a database.
type Memory struct {
	mu sync.Mutex

	users    map[int]User
	people   map[int]Person
	pictures map[int]Picture
	likes    map[int]Like
	dislikes map[int]Dislike

	nextUser    int
	nextPerson  int
	nextPicture int
	nextLike    int
	nextDislike int

	lastStamp time.Time
	sweepMu   sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int]User),
		people:   make(map[int]Person),
		pictures: make(map[int]Picture),
		likes:    make(map[int]Like),
		dislikes: make(map[int]Dislike),
	}
}

// now returns a strictly increasing timestamp so creation order is
// never ambiguous under the created_at sort.
func (m *Memory) now() time.Time {
	t := time.Now()
	if !t.After(m.lastStamp) {
		t = m.lastStamp.Add(time.Microsecond)
	}
	m.lastStamp = t
	return t
}

// --- Users ---

func (m *Memory) CreateUser(_ context.Context, name, email, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return User{}, ErrDuplicate
		}
	}
	m.nextUser++
	u := User{ID: m.nextUser, Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: m.now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id int) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// --- People ---

func (m *Memory) CreatePerson(_ context.Context, userID int, name string, age int, location string) (Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return Person{}, ErrInvalidReference
	}
	for _, p := range m.people {
		if p.UserID == userID {
			return Person{}, ErrDuplicate
		}
	}
	m.nextPerson++
	t := m.now()
	p := Person{
		ID: m.nextPerson, UserID: userID, Name: name, Age: age, Location: location,
		CreatedAt: t, UpdatedAt: t, Pictures: []Picture{},
	}
	m.people[p.ID] = p
	return p, nil
}

func (m *Memory) PersonByID(_ context.Context, id int) (Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return Person{}, ErrNotFound
	}
	return m.withPictures(p), nil
}

func (m *Memory) PersonByUserID(_ context.Context, userID int) (Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.people {
		if p.UserID == userID {
			return m.withPictures(p), nil
		}
	}
	return Person{}, ErrNotFound
}

func (m *Memory) UpdatePerson(_ context.Context, id int, upd PersonUpdate) (Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return Person{}, ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Age != nil {
		p.Age = *upd.Age
	}
	if upd.Location != nil {
		p.Location = *upd.Location
	}
	p.UpdatedAt = m.now()
	m.people[id] = p
	return m.withPictures(p), nil
}

func (m *Memory) DeletePerson(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[id]; !ok {
		return ErrNotFound
	}
	delete(m.people, id)
	// Cascade, mirroring the ON DELETE CASCADE constraints.
	for picID, pic := range m.pictures {
		if pic.PersonID == id {
			delete(m.pictures, picID)
		}
	}
	for likeID, l := range m.likes {
		if l.LikerID == id || l.LikedID == id {
			delete(m.likes, likeID)
		}
	}
	for dislikeID, d := range m.dislikes {
		if d.DislikerID == id || d.DislikedID == id {
			delete(m.dislikes, dislikeID)
		}
	}
	return nil
}

func (m *Memory) withPictures(p Person) Person {
	pics := []Picture{}
	for _, pic := range m.pictures {
		if pic.PersonID == p.ID {
			pics = append(pics, pic)
		}
	}
	sort.Slice(pics, func(i, j int) bool {
		if pics[i].Order != pics[j].Order {
			return pics[i].Order < pics[j].Order
		}
		return pics[i].ID < pics[j].ID
	})
	p.Pictures = pics
	return p
}

// --- Pictures ---

func (m *Memory) AddPicture(_ context.Context, personID int, imageURL string, order int) (Picture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[personID]; !ok {
		return Picture{}, ErrInvalidReference
	}
	m.nextPicture++
	pic := Picture{ID: m.nextPicture, PersonID: personID, ImageURL: imageURL, Order: order, CreatedAt: m.now()}
	m.pictures[pic.ID] = pic
	return pic, nil
}

func (m *Memory) NextPictureOrder(_ context.Context, personID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, pic := range m.pictures {
		if pic.PersonID == personID && pic.Order > max {
			max = pic.Order
		}
	}
	return max + 1, nil
}

func (m *Memory) DeletePicture(_ context.Context, personID, pictureID int) (Picture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pic, ok := m.pictures[pictureID]
	if !ok || pic.PersonID != personID {
		return Picture{}, ErrNotFound
	}
	delete(m.pictures, pictureID)
	return pic, nil
}

// --- Interaction ledger ---

func (m *Memory) RecordLike(_ context.Context, likerID, likedID int) (Like, error) {
	if likerID == likedID {
		return Like{}, ErrSelfReference
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[likerID]; !ok {
		return Like{}, ErrInvalidReference
	}
	if _, ok := m.people[likedID]; !ok {
		return Like{}, ErrInvalidReference
	}
	for _, l := range m.likes {
		if l.LikerID == likerID && l.LikedID == likedID {
			return Like{}, ErrDuplicate
		}
	}
	m.nextLike++
	l := Like{ID: m.nextLike, LikerID: likerID, LikedID: likedID, CreatedAt: m.now()}
	m.likes[l.ID] = l
	return l, nil
}

func (m *Memory) RecordDislike(_ context.Context, dislikerID, dislikedID int) (Dislike, error) {
	// No self-reference check, matching the Postgres implementation.
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[dislikerID]; !ok {
		return Dislike{}, ErrInvalidReference
	}
	if _, ok := m.people[dislikedID]; !ok {
		return Dislike{}, ErrInvalidReference
	}
	for _, d := range m.dislikes {
		if d.DislikerID == dislikerID && d.DislikedID == dislikedID {
			return Dislike{}, ErrDuplicate
		}
	}
	m.nextDislike++
	d := Dislike{ID: m.nextDislike, DislikerID: dislikerID, DislikedID: dislikedID, CreatedAt: m.now()}
	m.dislikes[d.ID] = d
	return d, nil
}

func (m *Memory) LikedIDs(_ context.Context, personID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for _, l := range m.likes {
		if l.LikerID == personID {
			ids = append(ids, l.LikedID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *Memory) DislikedIDs(_ context.Context, personID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for _, d := range m.dislikes {
		if d.DislikerID == personID {
			ids = append(ids, d.DislikedID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *Memory) LikesReceivedCount(_ context.Context, personID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.likes {
		if l.LikedID == personID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) LikedPeople(ctx context.Context, personID, page, perPage int) ([]Person, int, error) {
	liked, _ := m.LikedIDs(ctx, personID)
	m.mu.Lock()
	defer m.mu.Unlock()
	likedSet := make(map[int]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}
	var people []Person
	for _, p := range m.people {
		if _, ok := likedSet[p.ID]; ok {
			people = append(people, m.withPictures(p))
		}
	}
	return paginatePeople(people, page, perPage)
}

// --- Recommendation engine ---

func (m *Memory) Recommend(ctx context.Context, viewerID, page, perPage int) ([]Person, int, error) {
	liked, _ := m.LikedIDs(ctx, viewerID)
	disliked, _ := m.DislikedIDs(ctx, viewerID)
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := map[int]struct{}{viewerID: {}}
	for _, id := range liked {
		excluded[id] = struct{}{}
	}
	for _, id := range disliked {
		excluded[id] = struct{}{}
	}
	var people []Person
	for _, p := range m.people {
		if _, gone := excluded[p.ID]; !gone {
			people = append(people, m.withPictures(p))
		}
	}
	return paginatePeople(people, page, perPage)
}

// paginatePeople sorts newest-first with id as tie-breaker and cuts
// the requested page, returning the pre-cut total.
func paginatePeople(people []Person, page, perPage int) ([]Person, int, error) {
	page, perPage = NormalizePage(page, perPage)
	sort.Slice(people, func(i, j int) bool {
		if !people[i].CreatedAt.Equal(people[j].CreatedAt) {
			return people[i].CreatedAt.After(people[j].CreatedAt)
		}
		return people[i].ID > people[j].ID
	})
	total := len(people)
	start := (page - 1) * perPage
	if start >= total {
		return []Person{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return people[start:end], total, nil
}

// --- Popularity monitor ---

func (m *Memory) PopularCandidates(_ context.Context, threshold int) ([]PopularCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int]int)
	for _, l := range m.likes {
		counts[l.LikedID]++
	}
	var out []PopularCandidate
	for _, p := range m.people {
		if p.PopularEmailSent {
			continue
		}
		if counts[p.ID] >= threshold && counts[p.ID] > 0 {
			out = append(out, PopularCandidate{Person: m.withPictures(p), LikeCount: counts[p.ID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Person.ID < out[j].Person.ID })
	return out, nil
}

func (m *Memory) MarkNotified(_ context.Context, personID int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[personID]
	if !ok {
		return ErrNotFound
	}
	p.PopularEmailSent = true
	p.PopularEmailSentAt = &at
	p.UpdatedAt = m.now()
	m.people[personID] = p
	return nil
}

func (m *Memory) TrySweepLock(context.Context) (func(), bool, error) {
	if !m.sweepMu.TryLock() {
		return nil, false, nil
	}
	return m.sweepMu.Unlock, true, nil
}
