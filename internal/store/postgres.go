package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DefaultPerPage matches the API default page size.
const DefaultPerPage = 15

// MaxPerPage caps a client-supplied page size.
const MaxPerPage = 100

// Application-wide advisory lock id for the popularity sweep. Held for
// the whole sweep so only one instance runs across the fleet.
const sweepLockKey int64 = 7368560

// NormalizePage clamps pagination parameters to sane values.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Postgres implements Store on top of lib/pq.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// translate maps driver errors onto the store's sentinel errors so
// callers never string-match on Postgres messages.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return ErrDuplicate
		case "foreign_key_violation":
			return ErrInvalidReference
		}
	}
	return err
}

// --- Users ---

func (s *Postgres) CreateUser(ctx context.Context, name, email, passwordHash string) (User, error) {
	u := User{Name: name, Email: email, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, name, email, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", translate(err))
	}
	return u, nil
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return User{}, translate(err)
	}
	return u, nil
}

func (s *Postgres) UserByID(ctx context.Context, id int) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return User{}, translate(err)
	}
	return u, nil
}

// --- People ---

const personColumns = `id, user_id, name, age, location,
	popular_profile_email_sent, popular_profile_email_sent_at, created_at, updated_at`

func scanPerson(row *sql.Row) (Person, error) {
	var p Person
	var sentAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Age, &p.Location,
		&p.PopularEmailSent, &sentAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Person{}, translate(err)
	}
	if sentAt.Valid {
		p.PopularEmailSentAt = &sentAt.Time
	}
	p.Pictures = []Picture{}
	return p, nil
}

func (s *Postgres) CreatePerson(ctx context.Context, userID int, name string, age int, location string) (Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx, `
		INSERT INTO people (user_id, name, age, location)
		VALUES ($1, $2, $3, $4)
		RETURNING `+personColumns,
		userID, name, age, location))
	if err != nil {
		return Person{}, fmt.Errorf("create person: %w", err)
	}
	return p, nil
}

func (s *Postgres) PersonByID(ctx context.Context, id int) (Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE id = $1`, id))
	if err != nil {
		return Person{}, err
	}
	if err := s.attachPictures(ctx, []*Person{&p}); err != nil {
		return Person{}, err
	}
	return p, nil
}

func (s *Postgres) PersonByUserID(ctx context.Context, userID int) (Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE user_id = $1`, userID))
	if err != nil {
		return Person{}, err
	}
	if err := s.attachPictures(ctx, []*Person{&p}); err != nil {
		return Person{}, err
	}
	return p, nil
}

func (s *Postgres) UpdatePerson(ctx context.Context, id int, upd PersonUpdate) (Person, error) {
	var name sql.NullString
	var age sql.NullInt64
	var location sql.NullString
	if upd.Name != nil {
		name = sql.NullString{String: *upd.Name, Valid: true}
	}
	if upd.Age != nil {
		age = sql.NullInt64{Int64: int64(*upd.Age), Valid: true}
	}
	if upd.Location != nil {
		location = sql.NullString{String: *upd.Location, Valid: true}
	}
	p, err := scanPerson(s.db.QueryRowContext(ctx, `
		UPDATE people SET
			name = COALESCE($2, name),
			age = COALESCE($3, age),
			location = COALESCE($4, location),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+personColumns,
		id, name, age, location))
	if err != nil {
		return Person{}, err
	}
	if err := s.attachPictures(ctx, []*Person{&p}); err != nil {
		return Person{}, err
	}
	return p, nil
}

func (s *Postgres) DeletePerson(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// attachPictures loads the ordered pictures for a batch of people in
// one query.
func (s *Postgres) attachPictures(ctx context.Context, people []*Person) error {
	if len(people) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(people))
	byID := make(map[int]*Person, len(people))
	for _, p := range people {
		ids = append(ids, int64(p.ID))
		byID[p.ID] = p
		p.Pictures = []Picture{}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, image_url, "order", created_at
		FROM pictures
		WHERE person_id = ANY($1)
		ORDER BY "order", id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load pictures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pic Picture
		if err := rows.Scan(&pic.ID, &pic.PersonID, &pic.ImageURL, &pic.Order, &pic.CreatedAt); err != nil {
			return err
		}
		if p, ok := byID[pic.PersonID]; ok {
			p.Pictures = append(p.Pictures, pic)
		}
	}
	return rows.Err()
}

// --- Pictures ---

func (s *Postgres) AddPicture(ctx context.Context, personID int, imageURL string, order int) (Picture, error) {
	pic := Picture{PersonID: personID, ImageURL: imageURL, Order: order}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pictures (person_id, image_url, "order")
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, personID, imageURL, order).Scan(&pic.ID, &pic.CreatedAt)
	if err != nil {
		return Picture{}, fmt.Errorf("add picture: %w", translate(err))
	}
	return pic, nil
}

func (s *Postgres) NextPictureOrder(ctx context.Context, personID int) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX("order"), 0) + 1 FROM pictures WHERE person_id = $1`,
		personID).Scan(&next)
	if err != nil {
		return 0, translate(err)
	}
	return next, nil
}

func (s *Postgres) DeletePicture(ctx context.Context, personID, pictureID int) (Picture, error) {
	var pic Picture
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM pictures
		WHERE id = $1 AND person_id = $2
		RETURNING id, person_id, image_url, "order", created_at
	`, pictureID, personID).Scan(&pic.ID, &pic.PersonID, &pic.ImageURL, &pic.Order, &pic.CreatedAt)
	if err != nil {
		return Picture{}, translate(err)
	}
	return pic, nil
}

// --- Interaction ledger ---

func (s *Postgres) RecordLike(ctx context.Context, likerID, likedID int) (Like, error) {
	// Self-likes are rejected before touching the database, so the
	// check holds even for ids with no profile row.
	if likerID == likedID {
		return Like{}, ErrSelfReference
	}
	l := Like{LikerID: likerID, LikedID: likedID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO likes (liker_id, liked_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, likerID, likedID).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return Like{}, translate(err)
	}
	return l, nil
}

func (s *Postgres) RecordDislike(ctx context.Context, dislikerID, dislikedID int) (Dislike, error) {
	// Unlike RecordLike there is no self-reference check here; the
	// original system never rejected disliking yourself and that
	// asymmetry is kept until product decides otherwise.
	d := Dislike{DislikerID: dislikerID, DislikedID: dislikedID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO dislikes (disliker_id, disliked_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, dislikerID, dislikedID).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return Dislike{}, translate(err)
	}
	return d, nil
}

func (s *Postgres) LikedIDs(ctx context.Context, personID int) ([]int, error) {
	return s.targetIDs(ctx, `SELECT liked_id FROM likes WHERE liker_id = $1`, personID)
}

func (s *Postgres) DislikedIDs(ctx context.Context, personID int) ([]int, error) {
	return s.targetIDs(ctx, `SELECT disliked_id FROM dislikes WHERE disliker_id = $1`, personID)
}

func (s *Postgres) targetIDs(ctx context.Context, query string, personID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Postgres) LikesReceivedCount(ctx context.Context, personID int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE liked_id = $1`, personID).Scan(&count)
	return count, err
}

func (s *Postgres) LikedPeople(ctx context.Context, personID, page, perPage int) ([]Person, int, error) {
	page, perPage = NormalizePage(page, perPage)
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM people
		WHERE id IN (SELECT liked_id FROM likes WHERE liker_id = $1)
	`, personID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	people, err := s.queryPeople(ctx, `
		SELECT `+personColumns+` FROM people
		WHERE id IN (SELECT liked_id FROM likes WHERE liker_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, personID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return people, total, nil
}

// --- Recommendation engine ---

// Recommend excludes the viewer and everyone the viewer has already
// liked or disliked, newest profiles first with id as tie-breaker so
// pages are stable.
func (s *Postgres) Recommend(ctx context.Context, viewerID, page, perPage int) ([]Person, int, error) {
	page, perPage = NormalizePage(page, perPage)
	const filter = `
		FROM people p
		WHERE p.id <> $1
		  AND p.id NOT IN (SELECT liked_id FROM likes WHERE liker_id = $1)
		  AND p.id NOT IN (SELECT disliked_id FROM dislikes WHERE disliker_id = $1)`
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+filter, viewerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	people, err := s.queryPeople(ctx, `
		SELECT p.id, p.user_id, p.name, p.age, p.location,
		       p.popular_profile_email_sent, p.popular_profile_email_sent_at,
		       p.created_at, p.updated_at`+filter+`
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3
	`, viewerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return people, total, nil
}

func (s *Postgres) queryPeople(ctx context.Context, query string, args ...interface{}) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	people := []Person{}
	for rows.Next() {
		var p Person
		var sentAt sql.NullTime
		err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Age, &p.Location,
			&p.PopularEmailSent, &sentAt, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if sentAt.Valid {
			p.PopularEmailSentAt = &sentAt.Time
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	refs := make([]*Person, len(people))
	for i := range people {
		refs[i] = &people[i]
	}
	if err := s.attachPictures(ctx, refs); err != nil {
		return nil, err
	}
	return people, nil
}

// --- Popularity monitor ---

func (s *Postgres) PopularCandidates(ctx context.Context, threshold int) ([]PopularCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.name, p.age, p.location,
		       p.popular_profile_email_sent, p.popular_profile_email_sent_at,
		       p.created_at, p.updated_at,
		       COUNT(l.id) AS likes_count
		FROM people p
		JOIN likes l ON l.liked_id = p.id
		WHERE p.popular_profile_email_sent = FALSE
		GROUP BY p.id
		HAVING COUNT(l.id) >= $1
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("popular candidates: %w", err)
	}
	defer rows.Close()
	var out []PopularCandidate
	for rows.Next() {
		var c PopularCandidate
		var sentAt sql.NullTime
		err := rows.Scan(&c.Person.ID, &c.Person.UserID, &c.Person.Name, &c.Person.Age,
			&c.Person.Location, &c.Person.PopularEmailSent, &sentAt,
			&c.Person.CreatedAt, &c.Person.UpdatedAt, &c.LikeCount)
		if err != nil {
			return nil, err
		}
		if sentAt.Valid {
			c.Person.PopularEmailSentAt = &sentAt.Time
		}
		c.Person.Pictures = []Picture{}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkNotified(ctx context.Context, personID int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE people
		SET popular_profile_email_sent = TRUE,
		    popular_profile_email_sent_at = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, personID, at)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TrySweepLock takes a session-scoped advisory lock on a dedicated
// connection so the lock survives for the whole sweep and is visible
// across the fleet, not just this process.
func (s *Postgres) TrySweepLock(ctx context.Context) (func(), bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx,
		`SELECT pg_try_advisory_lock($1)`, sweepLockKey).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, err
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}
	release := func() {
		_, _ = conn.ExecContext(context.Background(),
			`SELECT pg_advisory_unlock($1)`, sweepLockKey)
		conn.Close()
	}
	return release, true, nil
}
