package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors translated by the API layer into HTTP statuses.
// Postgres constraint violations are mapped onto these at the store
// boundary so handlers never inspect driver errors.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a uniqueness constraint rejected the insert
	// (duplicate like/dislike pair, email or profile already taken).
	ErrDuplicate = errors.New("already exists")
	// ErrSelfReference means a like pointed back at its own profile.
	ErrSelfReference = errors.New("self reference")
	// ErrInvalidReference means a like/dislike referenced a profile id
	// that does not exist.
	ErrInvalidReference = errors.New("referenced profile does not exist")
)

// User is an account that can log in. A user owns at most one Person.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Person is a dateable profile shown to other users.
type Person struct {
	ID                 int        `json:"id"`
	UserID             int        `json:"user_id"`
	Name               string     `json:"name"`
	Age                int        `json:"age"`
	Location           string     `json:"location"`
	PopularEmailSent   bool       `json:"popular_profile_email_sent"`
	PopularEmailSentAt *time.Time `json:"popular_profile_email_sent_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Pictures           []Picture  `json:"pictures"`
}

// Picture is one image belonging to a Person, sorted by Order.
type Picture struct {
	ID        int       `json:"id"`
	PersonID  int       `json:"person_id"`
	ImageURL  string    `json:"image_url"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Like is a directed swipe-right edge between two people.
type Like struct {
	ID        int       `json:"id"`
	LikerID   int       `json:"liker_id"`
	LikedID   int       `json:"liked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Dislike is a directed swipe-left edge between two people.
type Dislike struct {
	ID         int       `json:"id"`
	DislikerID int       `json:"disliker_id"`
	DislikedID int       `json:"disliked_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// PersonUpdate carries the optional fields of a profile update. Nil
// means "leave unchanged".
type PersonUpdate struct {
	Name     *string
	Age      *int
	Location *string
}

// PopularCandidate is a not-yet-notified person whose incoming like
// count crossed the sweep threshold.
type PopularCandidate struct {
	Person    Person
	LikeCount int
}

// Store is the persistence contract shared by the Postgres
// implementation and the in-memory one used in tests.
type Store interface {
	// Users
	CreateUser(ctx context.Context, name, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id int) (User, error)

	// People
	CreatePerson(ctx context.Context, userID int, name string, age int, location string) (Person, error)
	PersonByID(ctx context.Context, id int) (Person, error)
	PersonByUserID(ctx context.Context, userID int) (Person, error)
	UpdatePerson(ctx context.Context, id int, upd PersonUpdate) (Person, error)
	// DeletePerson removes a person and, through cascading deletes, all
	// of their pictures and every like/dislike edge touching them.
	DeletePerson(ctx context.Context, id int) error

	// Pictures
	AddPicture(ctx context.Context, personID int, imageURL string, order int) (Picture, error)
	NextPictureOrder(ctx context.Context, personID int) (int, error)
	DeletePicture(ctx context.Context, personID, pictureID int) (Picture, error)

	// Interaction ledger
	RecordLike(ctx context.Context, likerID, likedID int) (Like, error)
	RecordDislike(ctx context.Context, dislikerID, dislikedID int) (Dislike, error)
	LikedIDs(ctx context.Context, personID int) ([]int, error)
	DislikedIDs(ctx context.Context, personID int) ([]int, error)
	LikesReceivedCount(ctx context.Context, personID int) (int, error)
	LikedPeople(ctx context.Context, personID, page, perPage int) ([]Person, int, error)

	// Recommendation engine: everyone except the viewer and the
	// viewer's liked/disliked sets, newest profiles first.
	Recommend(ctx context.Context, viewerID, page, perPage int) ([]Person, int, error)

	// Popularity monitor
	PopularCandidates(ctx context.Context, threshold int) ([]PopularCandidate, error)
	MarkNotified(ctx context.Context, personID int, at time.Time) error
	// TrySweepLock guards the popularity sweep against overlapping
	// runs. When acquired it returns a release func; when another run
	// holds the lock it returns acquired=false and the caller skips.
	TrySweepLock(ctx context.Context) (release func(), acquired bool, err error)
}
