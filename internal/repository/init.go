package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	"github.com/taskilo/mailsync/internal/models"
)

type Repositories struct {
	CredentialRepository interfaces.CredentialRepository
	EmailRepository      interfaces.EmailRepository
	SyncStateRepository  interfaces.SyncStateRepository
	WatchRepository      interfaces.WatchRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		CredentialRepository: NewCredentialRepository(db),
		EmailRepository:      NewEmailRepository(db),
		SyncStateRepository:  NewSyncStateRepository(db),
		WatchRepository:      NewWatchRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Email{},
		&models.EmailAttachment{},
		&models.GmailCredential{},
		&models.SyncState{},
		&models.WatchSubscription{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
