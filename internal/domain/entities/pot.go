package entities

import "time"

// Pot is a shared donation destination, created on first reference by a
// donation and touched on every subsequent one.
type Pot struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Campaign is a fundraising campaign destination with the same lazy
// create-on-reference lifecycle as Pot.
type Campaign struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
