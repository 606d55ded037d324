package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type roleCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// UserRepository is the persistent role store. Every method round-trips
// MongoDB; nothing is cached between calls.
type UserRepository struct {
	collection roleCollection
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(collection roleCollection) *UserRepository {
	return &UserRepository{collection: collection}
}

// GetOrCreateRole returns the stored role for userID, materializing a RoleUser
// row on first sight. The upsert is a single statement, so two concurrent
// first reads of the same id cannot insert two rows.
func (r *UserRepository) GetOrCreateRole(ctx context.Context, userID int64) (Role, error) {
	if r == nil || r.collection == nil {
		return "", errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if userID == 0 {
		return "", errors.New("user_id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"role":       RoleUser,
			"created_at": now,
			"updated_at": now,
		},
	}

	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		update,
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)
	if result == nil {
		return "", errors.New("get or create role returned no result")
	}
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("get or create role: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}

	return user.Role, nil
}

// Find looks up a user without any insert side effect. The second return
// value reports whether a record exists.
func (r *UserRepository) Find(ctx context.Context, userID int64) (User, bool, error) {
	if r == nil || r.collection == nil {
		return User{}, false, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return User{}, false, errors.New("context is required")
	}
	if userID == 0 {
		return User{}, false, errors.New("user_id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return User{}, false, errors.New("find user returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, false, nil
		}
		return User{}, false, fmt.Errorf("find user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, false, fmt.Errorf("decode user: %w", err)
	}

	return user, true, nil
}

// ListAll returns every stored user, unordered.
func (r *UserRepository) ListAll(ctx context.Context) ([]User, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := r.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	return users, nil
}

// SetRole updates the role of an existing user. It never creates a record:
// the false return reports that no row matched, which is the one place where
// "not found" is a legitimate outcome instead of a default insert.
func (r *UserRepository) SetRole(ctx context.Context, userID int64, role Role) (bool, error) {
	if r == nil || r.collection == nil {
		return false, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if userID == 0 {
		return false, errors.New("user_id is required")
	}
	if !ValidRole(role) {
		return false, &UnknownRoleError{Role: role}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"role":       role,
			"updated_at": now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("set role: %w", err)
	}

	return result != nil && result.MatchedCount > 0, nil
}
