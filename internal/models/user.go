package models

import (
	"time"
)

// User is the recipient record consumed by the composer. CRUD for users
// lives outside this service; the engine only reads them.
type User struct {
	ID    string `json:"id" bson:"_id"`
	Email string `json:"email" bson:"email"`
	Name  string `json:"name" bson:"name"`

	// Attributes are free-form profile fields, exposed to templates with a
	// user_ prefix.
	Attributes map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
