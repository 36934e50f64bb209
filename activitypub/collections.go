package activitypub

import (
	"github.com/davecheney/asap/internal/streams"
	"github.com/davecheney/asap/models"
)

// followers translates an actor's followers collection. Each item becomes a
// relation in which the item follows owner.
func (m *Mapper) followers(c *streams.Collection, owner *models.Profile) (models.ObjectCollection[models.FollowerRelation], error) {
	return m.relations(c, func(p *models.Profile) models.FollowerRelation {
		return models.FollowerRelation{Follower: p, Follows: owner}
	})
}

// following translates an actor's following collection. Each item becomes a
// relation in which owner follows the item.
func (m *Mapper) following(c *streams.Collection, owner *models.Profile) (models.ObjectCollection[models.FollowerRelation], error) {
	return m.relations(c, func(p *models.Profile) models.FollowerRelation {
		return models.FollowerRelation{Follower: owner, Follows: p}
	})
}

// relations translates the items of c, which may be given inline or on an
// embedded first page. A collection given only by IRI keeps that IRI and has
// no entries; it is not fetched.
func (m *Mapper) relations(c *streams.Collection, rel func(*models.Profile) models.FollowerRelation) (models.ObjectCollection[models.FollowerRelation], error) {
	var coll models.ObjectCollection[models.FollowerRelation]
	if c == nil {
		return coll, nil
	}
	coll.ID = c.ID
	items := collectionItems(c)
	for _, item := range items {
		p, err := m.ProfileFrom(item)
		if err != nil {
			return models.ObjectCollection[models.FollowerRelation]{}, err
		}
		coll.Items = append(coll.Items, rel(p))
	}
	coll.TotalItems = c.TotalItems
	if coll.TotalItems == 0 {
		coll.TotalItems = len(coll.Items)
	}
	return coll, nil
}

func collectionItems(c *streams.Collection) streams.Resolvables {
	switch {
	case len(c.OrderedItems) > 0:
		return c.OrderedItems
	case len(c.Items) > 0:
		return c.Items
	case c.First != nil:
		return collectionItems(c.First)
	default:
		return nil
	}
}
