// internal/domain/models/college.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// College is an entry in the institution directory offered to students.
// NameCI is indexed but not unique: concurrent custom-college creation can
// leave duplicate-looking entries behind.
type College struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	NameCI    string             `bson:"name_ci"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}
