package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

var _ repository.PostRepository = (*Store)(nil)

type postDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AuthorID  string             `bson:"author_id"`
	Body      []byte             `bson:"body"`
	Encrypted bool               `bson:"encrypted"`
	CreatedAt primitive.DateTime `bson:"created_at"`
	Likes     int64              `bson:"likes"`
	Comments  int64              `bson:"comments"`
}

func (d postDoc) toModel() model.Post {
	return model.Post{
		ID:        d.ID.Hex(),
		AuthorID:  d.AuthorID,
		Body:      d.Body,
		Encrypted: d.Encrypted,
		Timestamp: fromDateTime(d.CreatedAt),
		Likes:     d.Likes,
		Comments:  d.Comments,
	}
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	doc := postDoc{
		ID:        primitive.NewObjectID(),
		AuthorID:  post.AuthorID,
		Body:      post.Body,
		Encrypted: post.Encrypted,
		CreatedAt: toDateTime(post.Timestamp),
	}

	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting post: %w", err)
	}

	post.ID = doc.ID.Hex()
	post.Timestamp = fromDateTime(doc.CreatedAt)
	post.Likes = 0
	post.Comments = 0
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, apperror.NotFound("post", id)
	}

	var doc postDoc
	err := s.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting post %s: %w", id, err)
	}
	p := doc.toModel()
	return &p, nil
}

// ListPosts returns posts newest first, ties broken by id.
func (s *Store) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(opts.Limit)).
		SetSkip(int64(opts.Offset))

	cur, err := s.posts.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing posts: %w", err)
	}
	defer cur.Close(ctx)

	posts := make([]model.Post, 0, opts.Limit)
	for cur.Next(ctx) {
		var doc postDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding post: %w", err)
		}
		posts = append(posts, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating posts: %w", err)
	}
	return posts, nil
}

// IncrementLikes uses $inc, which the server applies atomically per document.
func (s *Store) IncrementLikes(ctx context.Context, id string) error {
	return s.increment(ctx, "likes", id)
}

func (s *Store) IncrementComments(ctx context.Context, id string) error {
	return s.increment(ctx, "comments", id)
}

func (s *Store) increment(ctx context.Context, field, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return apperror.NotFound("post", id)
	}

	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{field: 1}},
	)
	if err != nil {
		return fmt.Errorf("mongo: incrementing %s on post %s: %w", field, id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}
