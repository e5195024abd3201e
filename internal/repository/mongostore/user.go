package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

type userDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Name                 string             `bson:"name"`
	Email                string             `bson:"email"`
	Photo                string             `bson:"photo,omitempty"`
	Role                 model.UserRole     `bson:"role"`
	PasswordHash         string             `bson:"passwordHash"`
	PasswordChangedAt    *time.Time         `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time         `bson:"passwordResetExpires,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt"`
}

// UserRepository stores users in MongoDB
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{users: db.Collection(UsersCollection)}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	role := user.Role
	if role == "" {
		role = model.UserRoleUser
	}

	doc := &userDoc{
		ID:           primitive.NewObjectID(),
		Name:         user.Name,
		Email:        user.Email,
		Photo:        user.Photo,
		Role:         role,
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return duplicateFromError(err)
	}
	*user = *fromUserDoc(doc)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByResetToken retrieves the user holding an unexpired reset token hash
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": bson.M{"$gt": now},
	})
}

// GetByIDs retrieves the users with the given ids, skipping missing ones
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	oids, err := objectIDs(ids)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// List returns the users matching q
func (r *UserRepository) List(ctx context.Context, q query.Query) ([]*model.User, error) {
	fq, err := buildFind(userSchema, q)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, fq.Filter, fq.Options)
}

// UpdateProfile applies the whitelisted fields and returns the updated user
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Photo != nil {
		set["photo"] = *update.Photo
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	err = r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, duplicateFromError(err)
	}
	return fromUserDoc(&doc), nil
}

// SetResetToken stores a reset token hash and its expiry
func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": expires,
	}})
}

// ClearResetToken removes any pending reset token
func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, bson.M{"$unset": bson.M{
		"passwordResetToken":   "",
		"passwordResetExpires": "",
	}})
}

// ClearExpiredResetTokens removes every reset token that expired before now
// and returns how many users were touched
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error) {
	res, err := r.users.UpdateMany(ctx,
		bson.M{"passwordResetExpires": bson.M{"$lt": now}},
		bson.M{"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

// UpdatePassword stores a new hash, records the change time and clears any
// pending reset token
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"passwordHash":      hash,
			"passwordChangedAt": changedAt,
		},
		"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		},
	})
}

func (r *UserRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = r.users.UpdateByID(ctx, oid, update)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return fromUserDoc(&doc), nil
}

func (r *UserRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]*model.User, error) {
	cursor, err := r.users.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(docs))
	for i := range docs {
		users = append(users, fromUserDoc(&docs[i]))
	}
	return users, nil
}

func fromUserDoc(d *userDoc) *model.User {
	u := &model.User{
		ID:                   d.ID.Hex(),
		Name:                 d.Name,
		Email:                d.Email,
		Photo:                d.Photo,
		Role:                 d.Role,
		PasswordHash:         d.PasswordHash,
		PasswordChangedAt:    d.PasswordChangedAt,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: d.PasswordResetExpires,
		CreatedAt:            d.CreatedAt.UTC(),
	}
	return u
}
