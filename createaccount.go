package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davecheney/asap/internal/crypto"
	"github.com/davecheney/asap/models"
	"github.com/davecheney/asap/store"
	"golang.org/x/crypto/bcrypt"
)

type CreateAccountCmd struct {
	Email    string `required:"" help:"email address of the user to create"`
	Password string `required:"" help:"password of the user to create"`
	Domain   string `required:"" help:"domain name of the instance"`
	Name     string `help:"username; defaults to the local part of the email address"`
}

func (c *CreateAccountCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}

	username := c.Name
	if username == "" {
		local, _, ok := strings.Cut(c.Email, "@")
		if !ok {
			return errors.New("invalid email address")
		}
		username = local
	}

	passwd, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	keypair, err := crypto.GenerateRSAKeypair()
	if err != nil {
		return err
	}

	profile, err := localProfile(c.Domain, username, keypair.PublicKey)
	if err != nil {
		return err
	}
	account := &store.Account{
		Email:             c.Email,
		EncryptedPassword: passwd,
		PrivateKey:        keypair.PrivateKey,
	}
	if err := store.NewAccounts(db).Record(account, profile); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	ctx.Logger.Info("created account", "email", account.Email, "id", account.LocalID, "profile", profile.ID())
	return nil
}

// localProfile returns the profile of a new account on domain.
func localProfile(domain, username string, publicKey []byte) (*models.Profile, error) {
	iri := fmt.Sprintf("https://%s/users/%s", domain, username)
	ref, err := models.NewObjectRef(iri, string(models.PersonProfile))
	if err != nil {
		return nil, err
	}
	return &models.Profile{
		ObjectRef:   ref,
		Handle:      username + "@" + ref.Authority(),
		DisplayName: username,
		Inbox:       iri + "/inbox",
		Outbox:      iri + "/outbox",
		SharedInbox: fmt.Sprintf("https://%s/inbox", domain),
		Keys: []models.SigningKey{{
			KeyID:     iri + "#main-key",
			Owner:     iri,
			PublicKey: publicKey,
		}},
		FollowersCollection: models.ObjectCollection[models.FollowerRelation]{ID: iri + "/followers"},
		FollowingCollection: models.ObjectCollection[models.FollowerRelation]{ID: iri + "/following"},
		Updated:             time.Now().UTC(),
	}, nil
}
