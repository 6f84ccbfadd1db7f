package post

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

type postDocument struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	Title      string               `bson:"title"`
	Content    string               `bson:"content"`
	Image      *string              `bson:"image"`
	Categories []string             `bson:"categories"`
	Tags       []string             `bson:"tags"`
	AuthorID   primitive.ObjectID   `bson:"author_id"`
	CreatedAt  time.Time            `bson:"created_at"`
	Likes      []primitive.ObjectID `bson:"likes"`
	Comments   []commentDocument    `bson:"comments"`
}

type commentDocument struct {
	UserID    primitive.ObjectID `bson:"user_id"`
	Text      string             `bson:"text"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d postDocument) toDomain() domain.Post {
	post := domain.Post{
		ID:         domain.PostID(d.ID.Hex()),
		Title:      d.Title,
		Content:    d.Content,
		Image:      d.Image,
		Categories: nonNil(d.Categories),
		Tags:       nonNil(d.Tags),
		AuthorID:   domain.UserID(d.AuthorID.Hex()),
		CreatedAt:  d.CreatedAt.UTC(),
		Likes:      make([]domain.UserID, 0, len(d.Likes)),
		Comments:   make([]domain.Comment, 0, len(d.Comments)),
	}

	for _, like := range d.Likes {
		post.Likes = append(post.Likes, domain.UserID(like.Hex()))
	}

	for _, c := range d.Comments {
		post.Comments = append(post.Comments, domain.Comment{
			UserID:    domain.UserID(c.UserID.Hex()),
			Text:      c.Text,
			Timestamp: c.Timestamp.UTC(),
		})
	}

	return post
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

// MongoPostRepository implements Repository on the "posts" collection.
type MongoPostRepository struct {
	posts *mongo.Collection
	log   logging.Logger
}

var _ Repository = (*MongoPostRepository)(nil)

// MongoPostRepositoryFactory returns a RepositoryFactory bound to client.
func MongoPostRepositoryFactory(client *mongodb.Client) RepositoryFactory {
	return func() (Repository, error) {
		return NewMongoPostRepository(client), nil
	}
}

// NewMongoPostRepository creates a repository on a connected client.
func NewMongoPostRepository(client *mongodb.Client) *MongoPostRepository {
	return &MongoPostRepository{
		posts: client.Collection(mongodb.PostsCollection),
		log:   logging.GetLogger("repo.post.mongo_post_repository"),
	}
}

// referenceID converts an id stored inside a document. Unlike record ids, a
// malformed reference is an error rather than "not found".
func referenceID(id domain.UserID) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id.String())
	if err != nil {
		return primitive.NilObjectID, errors.Join(domain.ErrInvalidID, fmt.Errorf("user id %q: %w", id, err))
	}

	return oid, nil
}

// recordID converts a post id. ok is false for ids the store could never have issued.
func recordID(id domain.PostID) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id.String())

	return oid, err == nil
}

// CreatePost implements Repository.CreatePost.
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *domain.Post) (domain.PostID, error) {
	author, err := referenceID(post.AuthorID)
	if err != nil {
		return "", err
	}

	//nolint:exhaustruct
	res, err := r.posts.InsertOne(ctx, postDocument{
		Title:      post.Title,
		Content:    post.Content,
		Image:      post.Image,
		Categories: nonNil(post.Categories),
		Tags:       nonNil(post.Tags),
		AuthorID:   author,
		CreatedAt:  post.CreatedAt,
		Likes:      []primitive.ObjectID{},
		Comments:   []commentDocument{},
	})
	if err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert post: unexpected id type %T", res.InsertedID) //nolint:err113
	}

	return domain.PostID(oid.Hex()), nil
}

// GetPost implements Repository.GetPost.
func (r *MongoPostRepository) GetPost(ctx context.Context, id domain.PostID) (*domain.Post, bool, error) {
	oid, ok := recordID(id)
	if !ok {
		return nil, false, nil
	}

	var doc postDocument

	if err := r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("find post: %w", err)
	}

	post := doc.toDomain()

	return &post, true, nil
}

// ListPostsByAuthor implements Repository.ListPostsByAuthor.
func (r *MongoPostRepository) ListPostsByAuthor(ctx context.Context, author domain.UserID) ([]domain.Post, error) {
	authorID, err := referenceID(author)
	if err != nil {
		return nil, err
	}

	cursor, err := r.posts.Find(ctx,
		bson.M{"author_id": authorID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []domain.Post{}

	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}

		posts = append(posts, doc.toDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// AddLike implements Repository.AddLike.
func (r *MongoPostRepository) AddLike(ctx context.Context, id domain.PostID, user domain.UserID) (bool, error) {
	userID, err := referenceID(user)
	if err != nil {
		return false, err
	}

	oid, ok := recordID(id)
	if !ok {
		return false, nil
	}

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("add like: %w", err)
	}

	return res.ModifiedCount > 0, nil
}

// AddComment implements Repository.AddComment.
func (r *MongoPostRepository) AddComment(ctx context.Context, id domain.PostID, comment domain.Comment) (bool, error) {
	userID, err := referenceID(comment.UserID)
	if err != nil {
		return false, err
	}

	oid, ok := recordID(id)
	if !ok {
		return false, nil
	}

	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"comments": commentDocument{
			UserID:    userID,
			Text:      comment.Text,
			Timestamp: comment.Timestamp,
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("add comment: %w", err)
	}

	r.log.DebugContext(ctx, "comment pushed", "post_id", id, "modified", res.ModifiedCount)

	return res.ModifiedCount > 0, nil
}
