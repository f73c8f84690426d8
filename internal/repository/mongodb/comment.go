package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/socialfeed/internal/model"
	"github.com/sakif/socialfeed/internal/repository"
)

var _ repository.CommentRepository = (*Store)(nil)

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    string             `bson:"post_id"`
	AuthorID  string             `bson:"author_id"`
	Body      []byte             `bson:"body"`
	Encrypted bool               `bson:"encrypted"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	doc := commentDoc{
		ID:        primitive.NewObjectID(),
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		Encrypted: comment.Encrypted,
		CreatedAt: toDateTime(comment.Timestamp),
	}

	if _, err := s.comments.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting comment: %w", err)
	}

	comment.ID = doc.ID.Hex()
	comment.Timestamp = fromDateTime(doc.CreatedAt)
	return nil
}

// ListCommentsByPost returns a post's comments oldest first.
func (s *Store) ListCommentsByPost(ctx context.Context, postID string, opts repository.ListOptions) ([]model.Comment, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opts.Limit)).
		SetSkip(int64(opts.Offset))

	cur, err := s.comments.Find(ctx, bson.M{"post_id": postID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing comments for post %s: %w", postID, err)
	}
	defer cur.Close(ctx)

	comments := make([]model.Comment, 0, opts.Limit)
	for cur.Next(ctx) {
		var doc commentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding comment: %w", err)
		}
		comments = append(comments, model.Comment{
			ID:        doc.ID.Hex(),
			PostID:    doc.PostID,
			AuthorID:  doc.AuthorID,
			Body:      doc.Body,
			Encrypted: doc.Encrypted,
			Timestamp: fromDateTime(doc.CreatedAt),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating comments: %w", err)
	}
	return comments, nil
}
