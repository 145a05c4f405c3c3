package database

import "snapgram/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Session{},
		&models.User{},
		&models.Post{},
		&models.Save{},
		&models.Follow{},
	}
}
