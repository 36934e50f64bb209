package streams

import (
	"bytes"

	"github.com/go-json-experiment/json"
)

// Actor is an ActivityStreams actor: a Person, Group, Organization,
// Application or Service.
type Actor struct {
	Base
	Name              string      `json:"name"`
	PreferredUsername string      `json:"preferredUsername"`
	Summary           string      `json:"summary"`
	Content           string      `json:"content"`
	Attachment        Attachments `json:"attachment"`
	Followers         *Collection `json:"followers"`
	Following         *Collection `json:"following"`
	Inbox             *Collection `json:"inbox"`
	Outbox            *Collection `json:"outbox"`
	Endpoints         struct {
		SharedInbox string `json:"sharedInbox"`
	} `json:"endpoints"`
	PublicKey PublicKeys `json:"publicKey"`
	Published string     `json:"published"`
}

// Object is any ActivityStreams object which is not an actor, link, collection
// or activity.
type Object struct {
	Base
	Name         string      `json:"name"`
	Summary      string      `json:"summary"`
	Content      string      `json:"content"`
	Sensitive    bool        `json:"sensitive"`
	MediaType    string      `json:"mediaType"`
	URL          Links       `json:"url"`
	AttributedTo Resolvables `json:"attributedTo"`
	InReplyTo    Resolvables `json:"inReplyTo"`
	Published    string      `json:"published"`
	Updated      string      `json:"updated"`
	To           IRIs        `json:"to"`
	CC           IRIs        `json:"cc"`
	Tag          Links       `json:"tag"`
}

// Link is an ActivityStreams link. A bare IRI decodes as a Link whose ID and
// Href are both the IRI.
type Link struct {
	Base
	Href      string `json:"href"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
}

// IRI returns the id of the link, or its href if it has no id.
func (l *Link) IRI() string {
	if l.ID != "" {
		return l.ID
	}
	return l.Href
}

func (l *Link) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	iri, ok, err := stub(b)
	if err != nil {
		return err
	}
	if ok {
		*l = Link{Base: Base{ID: iri}, Href: iri}
		return nil
	}
	type link Link
	return json.Unmarshal(b, (*link)(l))
}

// Collection is an ActivityStreams collection or collection page.
// A collection given as a bare IRI has only its ID set.
type Collection struct {
	Base
	TotalItems   int         `json:"totalItems"`
	Items        Resolvables `json:"items"`
	OrderedItems Resolvables `json:"orderedItems"`
	First        *Collection `json:"first"`
}

func (c *Collection) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	iri, ok, err := stub(b)
	if err != nil {
		return err
	}
	if ok {
		*c = Collection{Base: Base{ID: iri}}
		return nil
	}
	type collection Collection
	return json.Unmarshal(b, (*collection)(c))
}

// PublicKey is the security vocabulary key actors publish.
type PublicKey struct {
	Base
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

func (k *PublicKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	iri, ok, err := stub(b)
	if err != nil {
		return err
	}
	if ok {
		*k = PublicKey{Base: Base{ID: iri}}
		return nil
	}
	type publicKey PublicKey
	return json.Unmarshal(b, (*publicKey)(k))
}

// Activity is an ActivityStreams activity, such as Create or Update.
type Activity struct {
	Base
	Actor     Resolvables `json:"actor"`
	Object    Resolvables `json:"object"`
	Generator Resolvables `json:"generator"`
	To        IRIs        `json:"to"`
	CC        IRIs        `json:"cc"`
	Published string      `json:"published"`
}

// Attachment is an entry in an actor's attachment list. It is either a literal
// PropertyValue, with Name and Value set, or a reference to another object.
type Attachment struct {
	// Resolvable is set when the attachment is itself an object.
	Resolvable Resolvable
	Type       string
	Name       string
	Value      string
}

// Literal reports whether the attachment is a name/value pair rather than an
// object in its own right.
func (a *Attachment) Literal() bool {
	return a.Resolvable == nil
}

func (a *Attachment) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return nil
	}
	var probe Base
	if b[0] == '{' {
		if err := json.Unmarshal(b, &probe); err != nil {
			return err
		}
	}
	if b[0] != '{' || probe.ID != "" || probe.Type != "PropertyValue" {
		r, err := Decode(b)
		if err != nil {
			return err
		}
		*a = Attachment{Resolvable: r}
		return nil
	}
	var pv struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &pv); err != nil {
		return err
	}
	*a = Attachment{Type: probe.Type, Name: pv.Name, Value: pv.Value}
	return nil
}

// Attachments is a single attachment or a list of them.
type Attachments []Attachment

func (as *Attachments) UnmarshalJSON(b []byte) error {
	*as = nil
	return oneOrMany(b, func(b []byte) error {
		var a Attachment
		if err := a.UnmarshalJSON(b); err != nil {
			return err
		}
		*as = append(*as, a)
		return nil
	})
}

// PublicKeys is a single public key or a list of them.
type PublicKeys []PublicKey

func (ks *PublicKeys) UnmarshalJSON(b []byte) error {
	*ks = nil
	return oneOrMany(b, func(b []byte) error {
		var k PublicKey
		if err := k.UnmarshalJSON(b); err != nil {
			return err
		}
		*ks = append(*ks, k)
		return nil
	})
}

// Links is a single link or a list of them.
type Links []Link

func (ls *Links) UnmarshalJSON(b []byte) error {
	*ls = nil
	return oneOrMany(b, func(b []byte) error {
		var l Link
		if err := l.UnmarshalJSON(b); err != nil {
			return err
		}
		*ls = append(*ls, l)
		return nil
	})
}

// Resolvables is a single resolvable or a list of them, each decoded with
// Decode.
type Resolvables []Resolvable

func (rs *Resolvables) UnmarshalJSON(b []byte) error {
	*rs = nil
	return oneOrMany(b, func(b []byte) error {
		r, err := Decode(b)
		if err != nil {
			return err
		}
		*rs = append(*rs, r)
		return nil
	})
}

// IRIs is an addressing property such as to or cc. Embedded objects are
// reduced to their ids.
type IRIs []string

func (is *IRIs) UnmarshalJSON(b []byte) error {
	*is = nil
	return oneOrMany(b, func(b []byte) error {
		iri, ok, err := stub(b)
		if err != nil {
			return err
		}
		if !ok {
			var base Base
			if err := json.Unmarshal(b, &base); err != nil {
				return err
			}
			iri = base.ID
		}
		if iri != "" {
			*is = append(*is, iri)
		}
		return nil
	})
}

// Contains reports whether iri is one of is.
func (is IRIs) Contains(iri string) bool {
	for _, i := range is {
		if i == iri {
			return true
		}
	}
	return false
}
