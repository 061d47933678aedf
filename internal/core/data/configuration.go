package data

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedConfiguration is a named configuration (a deck or loadout) saved by a player.
type SavedConfiguration struct {
	ID uint64 `gorm:"primaryKey"`

	AccountID uint64 `gorm:"uniqueIndex:idx_account_configuration"`
	Name      string `gorm:"uniqueIndex:idx_account_configuration; not null"`

	Data []uint32 `gorm:"serializer:json"`
}

// FindConfigurations returns all of the SavedConfigurations of an Account ordered by name.
func FindConfigurations(db *gorm.DB, accountID uint64) ([]SavedConfiguration, error) {
	var configurations []SavedConfiguration
	err := db.Where("account_id = ?", accountID).Order("name").Find(&configurations).Error
	return configurations, err
}

// UpsertConfiguration creates the configuration or overwrites the data of the
// configuration with the same name.
func UpsertConfiguration(db *gorm.DB, c *SavedConfiguration) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(c).Error
}
