package store

import (
	"time"

	"github.com/davecheney/asap/internal/snowflake"
	"github.com/davecheney/asap/models"
	"github.com/google/uuid"
)

// Profile is the stored form of a models.Profile. A row whose Type is empty is
// a partial profile; only its identity is known.
type Profile struct {
	ID        snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt time.Time
	// UpdatedAt is when the profile was last translated, not when the row
	// was written.
	UpdatedAt      time.Time     `gorm:"autoUpdateTime:false"`
	LocalID        uuid.UUID     `gorm:"type:char(36);uniqueIndex;not null"`
	URI            string        `gorm:"size:255;uniqueIndex;not null"`
	Authority      string        `gorm:"size:255;index;not null"`
	Type           string        `gorm:"size:16;not null;default:''"`
	Handle         string        `gorm:"size:255;index;not null;default:''"`
	DisplayName    string        `gorm:"size:255"`
	Description    string        `gorm:"type:text"`
	Inbox          string        `gorm:"size:255"`
	Outbox         string        `gorm:"size:255"`
	SharedInbox    string        `gorm:"size:255"`
	FollowersURI   string        `gorm:"size:255"`
	FollowersCount int32         `gorm:"not null;default:0"`
	FollowingURI   string        `gorm:"size:255"`
	FollowingCount int32         `gorm:"not null;default:0"`
	CustomFields   []CustomField `gorm:"constraint:OnDelete:CASCADE;"`
	Keys           []SigningKey  `gorm:"constraint:OnDelete:CASCADE;"`
	Owner          *Account      `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;<-:false"`
}

type CustomField struct {
	ID        uint32       `gorm:"primarykey"`
	ProfileID snowflake.ID `gorm:"index;not null"`
	Position  int32        `gorm:"not null"`
	Name      string       `gorm:"size:255;not null"`
	Value     string       `gorm:"type:text"`
}

type SigningKey struct {
	ID        uint32       `gorm:"primarykey"`
	ProfileID snowflake.ID `gorm:"index;not null"`
	KeyID     string       `gorm:"size:255;not null"`
	Owner     string       `gorm:"size:255"`
	PublicKey []byte       `gorm:"type:text;not null"`
}

// Relation records that Follower follows Follows.
type Relation struct {
	FollowerID snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Follower   *Profile     `gorm:"constraint:OnDelete:CASCADE;<-:false"`
	FollowsID  snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	Follows    *Profile     `gorm:"constraint:OnDelete:CASCADE;<-:false"`
}

// fromModel returns the row for p. The ID, LocalID and CreatedAt of the row
// are left for the caller to assign.
func fromModel(p *models.Profile) *Profile {
	row := &Profile{
		UpdatedAt:      p.Updated,
		URI:            p.ID(),
		Authority:      p.Authority(),
		Type:           p.Type(),
		Handle:         p.Handle,
		DisplayName:    p.DisplayName,
		Description:    p.Description,
		Inbox:          p.Inbox,
		Outbox:         p.Outbox,
		SharedInbox:    p.SharedInbox,
		FollowersURI:   p.FollowersCollection.ID,
		FollowersCount: int32(p.FollowersCollection.TotalItems),
		FollowingURI:   p.FollowingCollection.ID,
		FollowingCount: int32(p.FollowingCollection.TotalItems),
	}
	for i, cf := range p.CustomFields {
		row.CustomFields = append(row.CustomFields, CustomField{
			Position: int32(i),
			Name:     cf.Name,
			Value:    cf.Value,
		})
	}
	for _, k := range p.Keys {
		row.Keys = append(row.Keys, SigningKey{
			KeyID:     k.KeyID,
			Owner:     k.Owner,
			PublicKey: k.PublicKey,
		})
	}
	return row
}

// toModel returns the domain profile for row. Relations are not loaded.
func toModel(row *Profile) (*models.Profile, error) {
	ref, err := models.NewObjectRef(row.URI, row.Type)
	if err != nil {
		return nil, err
	}
	p := &models.Profile{
		ObjectRef:   ref.WithLocalID(row.LocalID),
		Handle:      row.Handle,
		DisplayName: row.DisplayName,
		Description: row.Description,
		Inbox:       row.Inbox,
		Outbox:      row.Outbox,
		SharedInbox: row.SharedInbox,
		Updated:     row.UpdatedAt,
		FollowersCollection: models.ObjectCollection[models.FollowerRelation]{
			ID:         row.FollowersURI,
			TotalItems: int(row.FollowersCount),
		},
		FollowingCollection: models.ObjectCollection[models.FollowerRelation]{
			ID:         row.FollowingURI,
			TotalItems: int(row.FollowingCount),
		},
	}
	for _, cf := range row.CustomFields {
		p.CustomFields = append(p.CustomFields, models.CustomField{Name: cf.Name, Value: cf.Value})
	}
	for _, k := range row.Keys {
		p.Keys = append(p.Keys, models.SigningKey{KeyID: k.KeyID, Owner: k.Owner, PublicKey: k.PublicKey})
	}
	if row.Owner != nil {
		p.OwnedBy = row.Owner.Domain()
		p.RelatedAccounts = []*models.Account{p.OwnedBy}
	}
	return p, nil
}
