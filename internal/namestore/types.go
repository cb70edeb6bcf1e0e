package namestore

import "time"

// FirstName is one row of the name frequency table. Counts say how
// often the name occurred for each gender in the loaded datasets.
type FirstName struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MaleCount   int64     `db:"male_count" json:"male_count"`
	FemaleCount int64     `db:"female_count" json:"female_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BatchUpsertResult reports the outcome of a batch write.
type BatchUpsertResult struct {
	Written  int64         `json:"written"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Stats summarizes the stored name table.
type Stats struct {
	TotalNames    int64 `json:"total_names"`
	MaleLeaning   int64 `json:"male_leaning"`
	FemaleLeaning int64 `json:"female_leaning"`
	Ambiguous     int64 `json:"ambiguous"`
}
