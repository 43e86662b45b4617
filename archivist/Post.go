package archivist

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PostsDB struct {
	Conn *gorm.DB
}

func NewPostsDB(db *gorm.DB) *PostsDB {
	return &PostsDB{Conn: db}
}

type Post struct {
	ID            uuid.UUID      `gorm:"primaryKey;type:uuid;not null;" json:"id"` // ID of the post (UUID)
	Hash          string         `gorm:"size:32;index;not null;" json:"hash"`      // MD5 hash of the text
	Platform      string         `gorm:"size:16;index;not null;" json:"platform"`  // Platform name ("x", "telegram")
	PublicationID string         `gorm:"size:64" json:"publication_id"`            // ID assigned by the platform
	Text          string         `gorm:"size:4096;not null;" json:"text"`          // Published text
	Indicators    datatypes.JSON `gorm:"" json:"indicators"`                       // Indicators the text was composed from
	PublishedAt   time.Time      `gorm:"not null" json:"published_at"`             // Publication date
	CreatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// TableName sets the table name used by gorm.
func (*Post) TableName() string {
	return "posts"
}

func (p *Post) Validate() error {
	if p.Platform == "" {
		return newError(errPlatformEmpty, nil)
	}

	if len(p.Platform) > 16 {
		return newError(errPlatformTooLong, nil)
	}

	if len(p.Hash) > 32 {
		return newError(errHashTooLong, nil)
	}

	if len(p.PublicationID) > 64 {
		return newError(errPubIDTooLong, nil)
	}

	if p.Text == "" {
		return newError(errTextEmpty, nil)
	}

	if len([]rune(p.Text)) > 4096 {
		return newError(errTextTooLong, nil)
	}

	return nil
}

// HashText returns the MD5 hash used to compare post texts.
func HashText(text string) string {
	h := md5.Sum([]byte(text))
	return hex.EncodeToString(h[:])
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	if p.Hash == "" {
		p.Hash = HashText(p.Text)
	}

	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now().UTC()
	}

	if err := p.Validate(); err != nil {
		return newError(errPostValidation, err)
	}

	return nil
}

func (db *PostsDB) Create(ctx context.Context, p *Post) error {
	res := db.Conn.WithContext(ctx).Create(p)
	if res.Error != nil {
		return newError(errPostCreation, res.Error)
	}

	return nil
}

// FindLatest returns the most recently published post for the platform, nil if there is none.
func (db *PostsDB) FindLatest(ctx context.Context, platform string) (*Post, error) {
	var p Post
	res := db.Conn.WithContext(ctx).
		Where("platform = ?", platform).
		Order("published_at DESC").
		Take(&p)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if res.Error != nil {
		return nil, newError(errPostFindLatest, res.Error)
	}

	return &p, nil
}
