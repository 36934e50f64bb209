package store

import (
	"errors"
	"fmt"

	"github.com/davecheney/asap/internal/snowflake"
	"github.com/davecheney/asap/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLocalProfile is returned when a profile owned by a local account would
// be overwritten. Local profiles are only changed through their account.
var ErrLocalProfile = errors.New("profile is owned by a local account")

type Profiles struct {
	db *gorm.DB
}

func NewProfiles(db *gorm.DB) *Profiles {
	return &Profiles{db: db}
}

// Record stores profile, inserting it or updating the row with the same IRI,
// and assigns the profile's local id. A partial profile never overwrites a
// stored profile; it is only inserted when the IRI is unknown. Updating a
// profile owned by a local account fails with ErrLocalProfile.
//
// Relations enumerated in the profile's collections are recorded with it.
// Only the identity of the other side is taken from the collection; unknown
// profiles are inserted as partial profiles and queued for refresh. A
// collection enumerated in full replaces the relations stored for it.
// Either everything is recorded or nothing is.
func (p *Profiles) Record(profile *models.Profile) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		row, err := record(tx, profile)
		if err != nil {
			return err
		}
		if profile.Partial() {
			return nil
		}
		return recordRelations(tx, row, profile)
	})
}

func record(tx *gorm.DB, profile *models.Profile) (*Profile, error) {
	var existing Profile
	err := tx.Where("uri = ?", profile.ID()).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := fromModel(profile)
		row.ID = snowflake.Now()
		row.LocalID = uuid.New()
		if err := tx.Create(row).Error; err != nil {
			return nil, fmt.Errorf("record %s: %w", profile.ID(), err)
		}
		profile.ObjectRef = profile.ObjectRef.WithLocalID(row.LocalID)
		return row, nil
	case err != nil:
		return nil, err
	case profile.Partial():
		profile.ObjectRef = profile.ObjectRef.WithLocalID(existing.LocalID)
		return &existing, nil
	}
	var owned int64
	if err := tx.Model(&Account{}).Where("profile_id = ?", existing.ID).Count(&owned).Error; err != nil {
		return nil, err
	}
	if owned > 0 {
		return nil, fmt.Errorf("record %s: %w", profile.ID(), ErrLocalProfile)
	}

	row := fromModel(profile)
	row.ID = existing.ID
	row.LocalID = existing.LocalID
	row.CreatedAt = existing.CreatedAt
	if row.Handle == "" {
		row.Handle = existing.Handle
	}
	for _, assoc := range []any{&CustomField{}, &SigningKey{}} {
		if err := tx.Where("profile_id = ?", row.ID).Delete(assoc).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Omit(clause.Associations).Save(row).Error; err != nil {
		return nil, fmt.Errorf("record %s: %w", profile.ID(), err)
	}
	for i := range row.CustomFields {
		row.CustomFields[i].ProfileID = row.ID
	}
	for i := range row.Keys {
		row.Keys[i].ProfileID = row.ID
	}
	if len(row.CustomFields) > 0 {
		if err := tx.Create(&row.CustomFields).Error; err != nil {
			return nil, err
		}
	}
	if len(row.Keys) > 0 {
		if err := tx.Create(&row.Keys).Error; err != nil {
			return nil, err
		}
	}
	profile.ObjectRef = profile.ObjectRef.WithLocalID(row.LocalID)
	return row, nil
}

func recordRelations(tx *gorm.DB, row *Profile, profile *models.Profile) error {
	var relations []Relation
	if complete(profile.FollowersCollection) {
		if err := tx.Where("follows_id = ?", row.ID).Delete(&Relation{}).Error; err != nil {
			return err
		}
	}
	for _, rel := range profile.FollowersCollection.Items {
		if rel.Follower == nil || rel.Follower == profile {
			continue
		}
		other, err := recordIdentity(tx, rel.Follower)
		if err != nil {
			return err
		}
		relations = append(relations, Relation{FollowerID: other.ID, FollowsID: row.ID})
	}
	if complete(profile.FollowingCollection) {
		if err := tx.Where("follower_id = ?", row.ID).Delete(&Relation{}).Error; err != nil {
			return err
		}
	}
	for _, rel := range profile.FollowingCollection.Items {
		if rel.Follows == nil || rel.Follows == profile {
			continue
		}
		other, err := recordIdentity(tx, rel.Follows)
		if err != nil {
			return err
		}
		relations = append(relations, Relation{FollowerID: row.ID, FollowsID: other.ID})
	}
	if len(relations) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&relations).Error
}

// complete reports whether every item of c was enumerated. A collection known
// only by its IRI, or by a first page, is not complete.
func complete(c models.ObjectCollection[models.FollowerRelation]) bool {
	return len(c.Items) > 0 && len(c.Items) >= c.TotalItems
}

// recordIdentity records the other side of a relation by its IRI alone and
// queues it for refresh if nothing more is known about it.
func recordIdentity(tx *gorm.DB, other *models.Profile) (*Profile, error) {
	ref, err := models.NewObjectRef(other.ID(), "")
	if err != nil {
		return nil, err
	}
	row, err := record(tx, &models.Profile{ObjectRef: ref})
	if err != nil {
		return nil, err
	}
	other.ObjectRef = other.ObjectRef.WithLocalID(row.LocalID)
	if row.Type == "" {
		if err := refresh(tx, row.ID); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// preloadProfile preloads all of a Profile's associations.
func preloadProfile(db *gorm.DB) *gorm.DB {
	return db.Preload("CustomFields", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	}).Preload("Keys", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Preload("Owner")
}

// Lookup returns the profile with the given local id.
func (p *Profiles) Lookup(localID uuid.UUID) (*models.Profile, error) {
	return p.take(p.db.Where("local_id = ?", localID))
}

// LookupByURI returns the profile with the given IRI.
func (p *Profiles) LookupByURI(iri string) (*models.Profile, error) {
	return p.take(p.db.Where("uri = ?", iri))
}

func (p *Profiles) take(query *gorm.DB) (*models.Profile, error) {
	var row Profile
	if err := query.Scopes(preloadProfile).Take(&row).Error; err != nil {
		return nil, err
	}
	return toModel(&row)
}

// LookupKey returns the signing key with the given key id.
func (p *Profiles) LookupKey(keyID string) (*models.SigningKey, error) {
	var row SigningKey
	if err := p.db.Where("key_id = ?", keyID).Take(&row).Error; err != nil {
		return nil, err
	}
	return &models.SigningKey{KeyID: row.KeyID, Owner: row.Owner, PublicKey: row.PublicKey}, nil
}

// LookupWithRelation returns the profile with the given IRI. Its collections
// contain only the relations, in either direction, with the profile
// identified by relationIRI.
func (p *Profiles) LookupWithRelation(iri, relationIRI string) (*models.Profile, error) {
	return p.withRelation(p.db.Where("uri = ?", iri), relationIRI)
}

// LookupWithRelationByLocalID is LookupWithRelation for the profile with the
// given local id.
func (p *Profiles) LookupWithRelationByLocalID(localID uuid.UUID, relationIRI string) (*models.Profile, error) {
	return p.withRelation(p.db.Where("local_id = ?", localID), relationIRI)
}

func (p *Profiles) withRelation(query *gorm.DB, relationIRI string) (*models.Profile, error) {
	var row Profile
	if err := query.Scopes(preloadProfile).Take(&row).Error; err != nil {
		return nil, err
	}
	profile, err := toModel(&row)
	if err != nil {
		return nil, err
	}
	other := p.db.Model(&Profile{}).Select("id").Where("uri = ?", relationIRI)

	var followers []Relation
	if err := p.db.Preload("Follower").Where("follows_id = ? AND follower_id IN (?)", row.ID, other).Find(&followers).Error; err != nil {
		return nil, err
	}
	for _, rel := range followers {
		follower, err := toModel(rel.Follower)
		if err != nil {
			return nil, err
		}
		profile.FollowersCollection.Items = append(profile.FollowersCollection.Items, models.FollowerRelation{Follower: follower, Follows: profile})
	}

	var following []Relation
	if err := p.db.Preload("Follows").Where("follower_id = ? AND follows_id IN (?)", row.ID, other).Find(&following).Error; err != nil {
		return nil, err
	}
	for _, rel := range following {
		follows, err := toModel(rel.Follows)
		if err != nil {
			return nil, err
		}
		profile.FollowingCollection.Items = append(profile.FollowingCollection.Items, models.FollowerRelation{Follower: profile, Follows: follows})
	}
	return profile, nil
}

// AnyByHandle reports whether a profile with the given handle exists.
func (p *Profiles) AnyByHandle(handle string) (bool, error) {
	return p.exists(p.db.Where("handle = ?", handle))
}

// AnyByURI reports whether a profile with the given IRI exists.
func (p *Profiles) AnyByURI(iri string) (bool, error) {
	return p.exists(p.db.Where("uri = ?", iri))
}

func (p *Profiles) exists(query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Model(&Profile{}).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

const (
	// DefaultPageSize is the page FindByHandle returns when no limit is given.
	DefaultPageSize = 20

	// MaxPageSize is the largest page FindByHandle returns.
	MaxPageSize = 100
)

// FindByHandle returns a page of profiles whose handle is handle or, if
// prefix is set, starts with handle. Pages are numbered from zero.
func (p *Profiles) FindByHandle(handle string, prefix bool, limit, page int) ([]*models.Profile, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if page < 0 {
		page = 0
	}
	query := p.db.Scopes(preloadProfile).Order("id").Limit(limit).Offset(limit * page)
	if prefix {
		query = query.Where("handle LIKE ? ESCAPE '!'", escapeLike(handle)+"%")
	} else {
		query = query.Where("handle = ?", handle)
	}
	var rows []Profile
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	profiles := make([]*models.Profile, 0, len(rows))
	for i := range rows {
		profile, err := toModel(&rows[i])
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// escapeLike escapes the LIKE wildcards in s with '!'.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '!':
			out = append(out, '!')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// Refresh schedules the profile with the given IRI to be dereferenced again.
// Scheduling a profile which is already scheduled resets its attempts.
func (p *Profiles) Refresh(iri string) error {
	var row Profile
	if err := p.db.Select("id").Where("uri = ?", iri).Take(&row).Error; err != nil {
		return err
	}
	return refresh(p.db, row.ID)
}

func refresh(db *gorm.DB, profileID snowflake.ID) error {
	db = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at",
			"attempts", // resets the attempts counter
		}),
	})
	return db.Create(&ProfileRefreshRequest{ProfileID: profileID}).Error
}
