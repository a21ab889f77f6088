// internal/domain/entity/image.go
package entity

import (
	"time"
)

// ImageRecord is an uploaded destination photo on file. Destination is the
// city code prefix of the file name ("{code}_{rest}").
type ImageRecord struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Destination string    `bson:"destination" json:"destination"`
	AddedAt     time.Time `bson:"addedAt" json:"addedAt"`
}
