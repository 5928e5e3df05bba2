package models

import (
	"time"
)

// Template is reusable subject/body text with {{name}} placeholders.
type Template struct {
	ID      string `json:"id" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Subject string `json:"subject" bson:"subject"`
	Body    string `json:"body" bson:"body"`
	IsHTML  bool   `json:"is_html" bson:"is_html"`

	// Variables is the derived registry of placeholder names found in the
	// subject and body at save time.
	Variables []string `json:"variables,omitempty" bson:"variables,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
