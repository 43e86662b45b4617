package archivist

import (
	"gorm.io/gorm"
)

// Entities is a struct that contains all the entities that Archivist is responsible for.
type Entities struct {
	Posts *PostsDB
}

// Archivist is responsible for storing and retrieving published posts.
type Archivist struct {
	db       *gorm.DB
	Entities *Entities
}

// NewArchivist creates a new Archivist with provided DSN to connect to database.
//
// DSN is a string in the format of: "user=gorm password=gorm dbname=gorm port=9920 sslmode=disable"
func NewArchivist(dsn string) (*Archivist, error) {
	conn, err := connectToPG(dsn)
	if err != nil {
		return nil, err
	}

	// TODO: Replace AutoMigrate with versioned migrations once the posts table gets a second schema change.
	if err := conn.AutoMigrate(&Post{}); err != nil {
		return nil, newError(errFailedMigration, err)
	}

	return &Archivist{
		db: conn,
		Entities: &Entities{
			Posts: NewPostsDB(conn),
		},
	}, nil
}

// Close closes the underlying connection pool.
func (a *Archivist) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
