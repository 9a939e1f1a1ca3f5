package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is a tracked product. Quantity is the on-hand stock and is kept in step with
// the transaction log by the recorder.
type Item struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Price       float64            `bson:"price" json:"price"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// CreateItemRequest is the payload accepted by the item creation endpoint.
type CreateItemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
}

// Validate reports the first missing or malformed field.
func (r CreateItemRequest) Validate() error {
	switch {
	case NormalizeProductName(r.Name) == "":
		return NewValidationError("name", "is required")
	case r.Description == "":
		return NewValidationError("description", "is required")
	case r.Quantity == nil:
		return NewValidationError("quantity", "is required")
	case *r.Quantity < 0:
		return NewValidationError("quantity", "must not be negative")
	case r.Price == nil:
		return NewValidationError("price", "is required")
	case *r.Price < 0:
		return NewValidationError("price", "must not be negative")
	}
	return nil
}

// UpdateItemRequest lists the fields a client may change. Nil fields are left as is.
type UpdateItemRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
}

// Validate checks the values that are present.
func (r UpdateItemRequest) Validate() error {
	if r.Name != nil && NormalizeProductName(*r.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if r.Description != nil && *r.Description == "" {
		return NewValidationError("description", "must not be empty")
	}
	if r.Quantity != nil && *r.Quantity < 0 {
		return NewValidationError("quantity", "must not be negative")
	}
	if r.Price != nil && *r.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	return nil
}

// ItemChanges are the descriptive fields a storage driver may overwrite directly.
// Quantity is never part of it; stock only moves through transactions.
type ItemChanges struct {
	Description *string
	Price       *float64
}

// ParseID converts a hex identifier coming from a client.
func ParseID(value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, NewValidationError("id", "is not a valid identifier")
	}
	return id, nil
}
