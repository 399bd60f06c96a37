package domain

import "time"

// Product is a catalog entry. Name is unique across the store.
//
// Rating and NumReviews are denormalized from the reviews table and are
// recomputed whenever a review is created or deleted. CountInStock never
// goes negative: the storage layer only decrements it through a conditional
// update that fails instead of underflowing.
type Product struct {
	ID           string
	Name         string
	UserID       string
	Image        string
	Brand        string
	Category     string
	Description  string
	Rating       float64
	NumReviews   int
	Price        float64
	CountInStock int
	CreatedAt    time.Time
}

// Review is a user's opinion on a product. A user may review a product they
// do not own; only the author may update or delete the review.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	Text      string
	Rating    float64
	CreatedAt time.Time
}
