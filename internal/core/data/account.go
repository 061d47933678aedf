package data

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Account contains the login information and progression of each registered user.
// Accounts are never deleted, only locked or banned.
type Account struct {
	ID uint64 `gorm:"primaryKey"`
	// Login as typed at creation; LoginKey is its case-folded form used for lookups.
	Login            string `gorm:"not null"`
	LoginKey         string `gorm:"uniqueIndex; not null"`
	Password         string `gorm:"not null"`
	Mail             string `gorm:"index"`
	RegistrationDate time.Time

	Locked bool `gorm:"default:false"`
	Banned bool `gorm:"default:false"`
	// Nil while Banned means the ban is permanent.
	BannedUntil *time.Time
	Admin       bool `gorm:"default:false"`

	Experience uint64
	Character  uint32

	ActivationCode    string
	ActivationExpires *time.Time

	Items          []Item
	Configurations []SavedConfiguration
}

// Item is an item owned by an account.
type Item struct {
	ID        uint64 `gorm:"primaryKey"`
	AccountID uint64 `gorm:"index"`
	ItemID    uint32
	Equipped  bool
}

// IsBanned reports whether the account is banned at the time now.
func (a *Account) IsBanned(now time.Time) bool {
	if !a.Banned {
		return false
	}
	return a.BannedUntil == nil || now.Before(*a.BannedUntil)
}

// LoginKey returns the normalized form of login under which accounts are unique.
func LoginKey(login string) string {
	// A Caser is stateful and may not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(login))
}

// FindAccountByLogin searches for an account with the specified login (compared
// case-insensitively), returning the *Account instance if found or nil if there is no match.
func FindAccountByLogin(db *gorm.DB, login string) (*Account, error) {
	var account Account
	// Find rather than First so a missing account is not logged as a failed query.
	result := db.Preload("Items").Preload("Configurations", func(db *gorm.DB) *gorm.DB {
		return db.Order("name")
	}).Where("login_key = ?", LoginKey(login)).Limit(1).Find(&account)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &account, nil
}

// FindAccess reads only the columns deciding whether the account may log in,
// bypassing anything cached about the rest of the account.
func FindAccess(db *gorm.DB, accountID uint64) (*Account, error) {
	var account Account
	result := db.Select("id", "locked", "banned", "banned_until").
		Where("id = ?", accountID).Limit(1).Find(&account)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &account, nil
}

// FindLoginsByMail returns the logins of every account registered with mail.
func FindLoginsByMail(db *gorm.DB, mail string) ([]string, error) {
	var logins []string
	err := db.Model(&Account{}).
		Where("mail = ?", NormalizeMail(mail)).
		Order("login").
		Pluck("login", &logins).Error
	return logins, err
}

// NormalizeMail returns the form mail addresses are stored and compared in.
func NormalizeMail(mail string) string {
	return strings.ToLower(strings.TrimSpace(mail))
}

// CreateAccount persists the Account record to the database.
func CreateAccount(db *gorm.DB, account *Account) error {
	account.LoginKey = LoginKey(account.Login)
	account.Mail = NormalizeMail(account.Mail)
	return db.Create(account).Error
}

// UpdateColumns writes only the given columns of the account, leaving whatever
// else changed since the caller read it alone.
func UpdateColumns(db *gorm.DB, accountID uint64, columns map[string]interface{}) error {
	result := db.Model(&Account{}).Where("id = ?", accountID).Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func SetCharacter(db *gorm.DB, accountID uint64, character uint32) error {
	return UpdateColumns(db, accountID, map[string]interface{}{"character": character})
}

// ReplaceItems replaces the inventory of the account with items.
func ReplaceItems(db *gorm.DB, accountID uint64, items []Item) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&Item{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = 0
			items[i].AccountID = accountID
		}
		return tx.Create(&items).Error
	})
}
