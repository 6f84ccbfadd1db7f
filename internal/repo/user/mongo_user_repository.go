package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/infra/mongodb"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           domain.UserID(d.ID.Hex()),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// MongoUserRepository implements Repository on the "users" collection.
type MongoUserRepository struct {
	users *mongo.Collection
	log   logging.Logger
}

var _ Repository = (*MongoUserRepository)(nil)

// MongoUserRepositoryFactory returns a RepositoryFactory bound to client.
func MongoUserRepositoryFactory(client *mongodb.Client) RepositoryFactory {
	return func() (Repository, error) {
		return NewMongoUserRepository(client), nil
	}
}

// NewMongoUserRepository creates a repository on a connected client.
func NewMongoUserRepository(client *mongodb.Client) *MongoUserRepository {
	return &MongoUserRepository{
		users: client.Collection(mongodb.UsersCollection),
		log:   logging.GetLogger("repo.user.mongo_user_repository"),
	}
}

// objectID converts a record id. ok is false for ids the store could never have issued.
func objectID(id domain.UserID) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id.String())

	return oid, err == nil
}

// CreateUser implements Repository.CreateUser.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *domain.User) (domain.UserID, error) {
	//nolint:exhaustruct
	res, err := r.users.InsertOne(ctx, userDocument{
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = errors.Join(domain.ErrEmailExists, err)
		}

		return "", fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert user: unexpected id type %T", res.InsertedID) //nolint:err113
	}

	return domain.UserID(oid.Hex()), nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, bool, error) {
	var doc userDocument

	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("find user: %w", err)
	}

	return doc.toDomain(), true, nil
}

// GetUserByID implements Repository.GetUserByID.
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, false, nil
	}

	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetUserByEmail implements Repository.GetUserByEmail.
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// ListUsers implements Repository.ListUsers.
func (r *MongoUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []domain.User{}

	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}

		users = append(users, *doc.toDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateUser implements Repository.UpdateUser.
func (r *MongoUserRepository) UpdateUser(
	ctx context.Context,
	id domain.UserID,
	update domain.UserUpdate,
) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}

	set := bson.M{}

	if update.Name != nil {
		set["name"] = *update.Name
	}

	if update.Email != nil {
		set["email"] = *update.Email
	}

	if update.PasswordHash != nil {
		set["password"] = *update.PasswordHash
	}

	if len(set) == 0 {
		_, found, err := r.GetUserByID(ctx, id)

		return found, err
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = errors.Join(domain.ErrEmailExists, err)
		}

		return false, fmt.Errorf("update user: %w", err)
	}

	return res.MatchedCount > 0, nil
}

// DeleteUser implements Repository.DeleteUser.
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id domain.UserID) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}

	res, err := r.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	r.log.DebugContext(ctx, "user deleted", "id", id, "found", res.DeletedCount > 0)

	return res.DeletedCount > 0, nil
}
