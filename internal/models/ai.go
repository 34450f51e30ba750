package models

import "time"

// AiLabel is unique per (Name, Lang).
type AiLabel struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Lang string `json:"lang" db:"lang"`
}

// FaceGroup buckets detected faces. Every detected face currently opens a
// new group; Count is incremented once per face assigned.
type FaceGroup struct {
	ID        int64     `json:"id" db:"id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Count     int       `json:"count" db:"count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
