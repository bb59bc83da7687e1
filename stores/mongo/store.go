// Package mongo implements habitbuddy.Store on MongoDB.
//
// Documents use the same collections and field names as the original
// deployment, so an existing database can be served without migration:
//
//	users:  { _id, email, name, password, createdAt }
//	habits: { _id, userId, title, icon, streak, xpValue, completed,
//	          completedDates, time, createdAt }
//
// Users are keyed by ObjectID and the hex form is used as habitbuddy.User.ID.
//
// Stored data carries over but sessions do not: session tokens put the user
// id in "sub" where the old server used a "userId" claim, so users signed in
// before a cutover have to log in again.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	hb "github.com/panyam/habitbuddy"
)

const (
	UsersCollection  = "users"
	HabitsCollection = "habits"

	// DefaultDatabase is used when the connection string names no database
	DefaultDatabase = "test"
)

type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Name      string        `bson:"name"`
	Password  string        `bson:"password,omitempty"`
	CreatedAt time.Time     `bson:"createdAt"`
}

type habitDoc struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	UserID         bson.ObjectID `bson:"userId"`
	Title          string        `bson:"title"`
	Icon           string        `bson:"icon"`
	Streak         int           `bson:"streak"`
	XPValue        int           `bson:"xpValue"`
	Completed      bool          `bson:"completed"`
	CompletedDates []string      `bson:"completedDates"`
	Time           string        `bson:"time,omitempty"`
	CreatedAt      time.Time     `bson:"createdAt"`
}

func (d *userDoc) toUser() *hb.User {
	return &hb.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
	}
}

func (d *habitDoc) toHabit() *hb.Habit {
	dates := d.CompletedDates
	if dates == nil {
		dates = []string{}
	}
	return &hb.Habit{
		ID:             d.ID.Hex(),
		UserID:         d.UserID.Hex(),
		Title:          d.Title,
		Icon:           d.Icon,
		Streak:         d.Streak,
		XPValue:        d.XPValue,
		Completed:      d.Completed,
		CompletedDates: dates,
		Time:           d.Time,
		CreatedAt:      d.CreatedAt,
	}
}

// Store implements habitbuddy.Store on a MongoDB database
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	habits *mongo.Collection
}

// DatabaseFromURI returns the database named in the path of a mongodb://
// or mongodb+srv:// connection string, or DefaultDatabase if there is none.
func DatabaseFromURI(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongodb uri: %w", err)
	}
	if cs.Database == "" {
		return DefaultDatabase, nil
	}
	return cs.Database, nil
}

// Connect dials uri and ensures the indexes exist. An empty dbName selects
// the database named in uri.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	if dbName == "" {
		var err error
		if dbName, err = DatabaseFromURI(uri); err != nil {
			return nil, err
		}
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	store := NewStore(client, dbName)
	if err := store.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing client
func NewStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client: client,
		users:  db.Collection(UsersCollection),
		habits: db.Collection(HabitsCollection),
	}
}

// EnsureIndexes creates the unique email index and the habit owner index
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.email index: %w", err)
	}
	_, err = s.habits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create habits.userId index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop deletes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.users.Database().Drop(ctx)
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, user *hb.User) error {
	doc := userDoc{
		ID:        bson.NewObjectID(),
		Email:     user.Email,
		Name:      user.Name,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return hb.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*hb.User, error) {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, hb.ErrUserNotFound
	}
	return s.findUser(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*hb.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) findUser(ctx context.Context, filter bson.D) (*hb.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hb.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toUser(), nil
}

// =============================================================================
// HabitStore
// =============================================================================

func (s *Store) ListHabits(ctx context.Context, userID string) ([]*hb.Habit, error) {
	owner, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return []*hb.Habit{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.habits.Find(ctx, bson.D{{Key: "userId", Value: owner}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []habitDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	habits := make([]*hb.Habit, 0, len(docs))
	for i := range docs {
		habits = append(habits, docs[i].toHabit())
	}
	return habits, nil
}

func (s *Store) CreateHabit(ctx context.Context, habit *hb.Habit) error {
	owner, err := bson.ObjectIDFromHex(habit.UserID)
	if err != nil {
		return fmt.Errorf("invalid habit owner %q: %w", habit.UserID, err)
	}
	dates := habit.CompletedDates
	if dates == nil {
		dates = []string{}
	}
	doc := habitDoc{
		ID:             bson.NewObjectID(),
		UserID:         owner,
		Title:          habit.Title,
		Icon:           habit.Icon,
		Streak:         habit.Streak,
		XPValue:        habit.XPValue,
		Completed:      habit.Completed,
		CompletedDates: dates,
		Time:           habit.Time,
		CreatedAt:      habit.CreatedAt,
	}
	if _, err := s.habits.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}
	habit.ID = doc.ID.Hex()
	return nil
}

func (s *Store) UpdateHabit(ctx context.Context, userID, habitID string, fields *hb.HabitFields) (*hb.Habit, error) {
	filter, ok := habitFilter(userID, habitID)
	if !ok {
		return nil, hb.ErrHabitNotFound
	}

	var doc habitDoc
	var err error
	if set := SetDocument(fields); len(set) > 0 {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = s.habits.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	} else {
		// $set with no fields is rejected by the server
		err = s.habits.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hb.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	return doc.toHabit(), nil
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	filter, ok := habitFilter(userID, habitID)
	if !ok {
		return hb.ErrHabitNotFound
	}
	result, err := s.habits.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if result.DeletedCount == 0 {
		return hb.ErrHabitNotFound
	}
	return nil
}

// habitFilter matches a habit by id and owner. Ids that are not valid
// ObjectIDs can never match.
func habitFilter(userID, habitID string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(habitID)
	if err != nil {
		return nil, false
	}
	owner, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: owner}}, true
}

// SetDocument builds the $set body for the supplied fields. The owner and
// id are never part of it.
func SetDocument(fields *hb.HabitFields) bson.D {
	var set bson.D
	if fields == nil {
		return set
	}
	if fields.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *fields.Title})
	}
	if fields.Icon != nil {
		set = append(set, bson.E{Key: "icon", Value: *fields.Icon})
	}
	if fields.Streak != nil {
		set = append(set, bson.E{Key: "streak", Value: *fields.Streak})
	}
	if fields.XPValue != nil {
		set = append(set, bson.E{Key: "xpValue", Value: *fields.XPValue})
	}
	if fields.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *fields.Completed})
	}
	if fields.CompletedDates != nil {
		dates := *fields.CompletedDates
		if dates == nil {
			dates = []string{}
		}
		set = append(set, bson.E{Key: "completedDates", Value: dates})
	}
	if fields.Time != nil {
		set = append(set, bson.E{Key: "time", Value: *fields.Time})
	}
	return set
}
