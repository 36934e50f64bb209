package store

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/davecheney/asap/internal/crypto"
	"github.com/davecheney/asap/internal/snowflake"
	"github.com/davecheney/asap/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// An Account is a login on this server. An Account owns a Profile.
type Account struct {
	ID                snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LocalID           uuid.UUID    `gorm:"type:char(36);uniqueIndex;not null"`
	ProfileID         snowflake.ID `gorm:"uniqueIndex;not null"`
	Profile           *Profile     `gorm:"<-:false"`
	Email             string       `gorm:"size:64;uniqueIndex;not null"`
	EncryptedPassword []byte       `gorm:"size:60;not null"`
	PrivateKey        []byte       `gorm:"not null"`
}

// Domain returns the domain view of the account.
func (a *Account) Domain() *models.Account {
	return &models.Account{
		ID:    a.LocalID,
		Email: a.Email,
	}
}

// PublicKeyID returns the IRI of the key the account signs requests with.
// The Profile must be loaded.
func (a *Account) PublicKeyID() string {
	if len(a.Profile.Keys) > 0 {
		return a.Profile.Keys[0].KeyID
	}
	return a.Profile.URI + "#main-key"
}

// PrivKey returns the account's private key.
func (a *Account) PrivKey() (*rsa.PrivateKey, error) {
	return crypto.ParseRSAPrivateKey(a.PrivateKey)
}

type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// Record creates account and the local profile it owns. Email,
// EncryptedPassword and PrivateKey must be set; the ids of both are assigned
// here.
func (a *Accounts) Record(account *Account, profile *models.Profile) error {
	if profile.Partial() {
		return errors.New("an account cannot own a partial profile")
	}
	return a.db.Transaction(func(tx *gorm.DB) error {
		if exists, err := NewProfiles(tx).AnyByURI(profile.ID()); err != nil {
			return err
		} else if exists {
			return gorm.ErrDuplicatedKey
		}
		row, err := record(tx, profile)
		if err != nil {
			return err
		}
		account.ID = snowflake.Now()
		account.LocalID = uuid.New()
		account.ProfileID = row.ID
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		account.Profile = row
		profile.OwnedBy = account.Domain()
		profile.RelatedAccounts = []*models.Account{profile.OwnedBy}
		return nil
	})
}

// Lookup returns the account with the given local id.
func (a *Accounts) Lookup(localID uuid.UUID) (*Account, error) {
	var account Account
	return &account, a.db.Scopes(preloadAccount).Where("local_id = ?", localID).Take(&account).Error
}

// FindByEmail returns the account with the given email address.
func (a *Accounts) FindByEmail(email string) (*Account, error) {
	var account Account
	return &account, a.db.Scopes(preloadAccount).Where("email = ?", email).Take(&account).Error
}

func preloadAccount(db *gorm.DB) *gorm.DB {
	return db.Preload("Profile").Preload("Profile.Keys")
}
