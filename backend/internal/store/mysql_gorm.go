package store

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:64;uniqueIndex"`
	PasswordHash []byte `gorm:"size:72"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DocumentSnapshot struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	DocumentID string `gorm:"size:128;index"`
	Content    string `gorm:"type:mediumtext"`
	CreatedAt  time.Time
}

// InitMySQL opens the database and keeps the schema current.
func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}, &DocumentSnapshot{}); err != nil {
		return nil, err
	}
	return db, nil
}
