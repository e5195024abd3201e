package mongostore

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/forgo/tours/api/internal/database"
)

// Example message:
//
//	E11000 duplicate key error collection: tours.users index: email_1 dup key: { email: "a@b.c" }
var dupKeyPattern = regexp.MustCompile(`dup key: \{ ?([A-Za-z0-9_.]+): (.+?) ?\}`)

// duplicateFromError turns a duplicate key write error into a
// *database.DuplicateError naming the field and value.
func duplicateFromError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}

	dup := &database.DuplicateError{Err: err}
	if m := dupKeyPattern.FindStringSubmatch(err.Error()); m != nil {
		dup.Field = m[1]
		dup.Value = strings.Trim(m[2], `"'`)
	}
	return dup
}
