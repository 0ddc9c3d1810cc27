package catalog

// LogLevel classifies per-user log entries.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "Info"
	LogLevelError LogLevel = "Error"
)

// User represents an account that owns media.
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Username     string `gorm:"uniqueIndex;not null;size:255" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Media is the central catalog entity: one row per accepted original.
// The row id doubles as the object key of the original in the blob store.
//
// EXIF fields and file size are nullable; the derivation workers fill them
// after the upload has been accepted. Every mutation bumps LastModifiedAt
// (ms since epoch) so partial sync can use it as a watermark.
type Media struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	UserID         string  `gorm:"not null;size:36;uniqueIndex:idx_media_user_hash" json:"-"`
	PreviewID      *string `gorm:"size:64" json:"preview_id,omitempty"`
	Hash           string  `gorm:"not null;size:64;uniqueIndex:idx_media_user_hash" json:"hash"`
	CreatedAt      int64   `gorm:"not null" json:"created_at"`
	LastModifiedAt int64   `gorm:"not null;index" json:"last_modified_at"`
	Deleted        bool    `gorm:"not null;default:false" json:"-"`

	FileSize *int64  `json:"file_size,omitempty"`
	FileName *string `gorm:"size:255" json:"file_name,omitempty"`

	// Camera metadata extracted from EXIF.
	Longitude               *float64 `json:"longitude,omitempty"`
	Latitude                *float64 `json:"latitude,omitempty"`
	ImageWidth              *int64   `json:"image_width,omitempty"`
	ImageLength             *int64   `json:"image_length,omitempty"`
	Make                    *string  `gorm:"size:255" json:"make,omitempty"`
	Model                   *string  `gorm:"size:255" json:"model,omitempty"`
	FNumber                 *float64 `json:"fnumber,omitempty"`
	ExposureTime            *string  `gorm:"size:64" json:"exposure_time,omitempty"`
	PhotographicSensitivity *int64   `json:"photographic_sensitivity,omitempty"`
	Orientation             *int64   `json:"orientation,omitempty"`

	// ClipEmbedding is written by the external embedding worker.
	// Stored as JSON so the column works on both sqlite and postgres.
	ClipEmbedding []float32 `gorm:"serializer:json" json:"-"`
}

// TableName returns the table name for Media.
func (Media) TableName() string {
	return "media"
}

// MediaFace is a single face detection inside one media item.
type MediaFace struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MediaID   string    `gorm:"not null;size:36;index" json:"media_id"`
	ClusterID string    `gorm:"not null;size:36;index" json:"cluster_id"`
	Embedding []float32 `gorm:"serializer:json" json:"-"`
	BBox      []int     `gorm:"serializer:json" json:"bbox"`
}

// TableName returns the table name for MediaFace.
func (MediaFace) TableName() string {
	return "media_faces"
}

// Cluster groups detections judged to be the same person. FaceID is null
// until the user names the person; several clusters may share one FaceID.
type Cluster struct {
	ID     string  `gorm:"primaryKey;size:36" json:"id"`
	UserID string  `gorm:"not null;size:36;index" json:"-"`
	FaceID *string `gorm:"size:36;index" json:"face_id,omitempty"`
}

// TableName returns the table name for Cluster.
func (Cluster) TableName() string {
	return "clusters"
}

// Face is a user-named person, the union of the clusters bound to it.
type Face struct {
	ID              string  `gorm:"primaryKey;size:36" json:"id"`
	UserID          string  `gorm:"not null;size:36;index" json:"-"`
	Name            string  `gorm:"not null;size:255" json:"name"`
	FeaturedPhotoID *string `gorm:"size:36" json:"featured_photo_id,omitempty"`
}

// TableName returns the table name for Face.
func (Face) TableName() string {
	return "faces"
}

// Log is one entry in a user's ordered activity stream.
type Log struct {
	ID      uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  string   `gorm:"not null;size:36;index" json:"-"`
	Level   LogLevel `gorm:"not null;size:16" json:"level"`
	Date    int64    `gorm:"not null" json:"date"`
	Message string   `gorm:"not null" json:"message"`
}

// TableName returns the table name for Log.
func (Log) TableName() string {
	return "logs"
}

// AllModels returns every model for schema auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&Media{},
		&MediaFace{},
		&Cluster{},
		&Face{},
		&Log{},
	}
}
