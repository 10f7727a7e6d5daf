package model

import "time"

// ContentRecord is an entry in the destination content store that an asset
// may illustrate. Once HasAssociatedMedia is true the record is never
// offered as a match candidate again.
type ContentRecord struct {
	CreatedAt          time.Time
	ID                 string
	Slug               string
	Title              string
	HasAssociatedMedia bool
}
