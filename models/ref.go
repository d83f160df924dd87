package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Collection names for the three document types.
const (
	UsersCollection  = "users"
	GroupsCollection = "groups"
	TasksCollection  = "tasks"
)

// Ref is a weak reference to a document in a named collection. It carries no
// ownership of the referenced document: resolving a Ref may find nothing if
// the document was deleted after the reference was written.
//
// Stored data is allowed to hold either a full {collection, id} reference or
// a bare identifier string; both decode into Ref. In the bare case Collection
// is left empty and the resolver fills in the target collection, so code past
// the store boundary never branches on the two shapes.
type Ref struct {
	Collection string `bson:"collection" json:"collection,omitempty"`
	ID         string `bson:"id" json:"id"`
}

func UserRef(id string) Ref  { return Ref{Collection: UsersCollection, ID: id} }
func GroupRef(id string) Ref { return Ref{Collection: GroupsCollection, ID: id} }
func TaskRef(id string) Ref  { return Ref{Collection: TasksCollection, ID: id} }

// UserRefs converts a list of bare user identities into references.
func UserRefs(ids []string) []Ref {
	refs := make([]Ref, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, UserRef(id))
	}
	return refs
}

func (r Ref) IsZero() bool { return r.ID == "" }

// In returns the reference with its collection defaulted to the given one.
// References that already name a collection are returned unchanged.
func (r Ref) In(collection string) Ref {
	if r.Collection == "" {
		r.Collection = collection
	}
	return r
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Collection, r.ID)
}

// UnmarshalBSONValue accepts both reference shapes found in stored documents:
// an embedded {collection, id} document or a bare identifier string.
func (r *Ref) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeString:
		var id string
		if err := bson.UnmarshalValue(t, data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	case bson.TypeEmbeddedDocument:
		var doc struct {
			Collection string `bson:"collection"`
			ID         string `bson:"id"`
		}
		if err := bson.UnmarshalValue(t, data, &doc); err != nil {
			return err
		}
		*r = Ref{Collection: doc.Collection, ID: doc.ID}
		return nil
	case bson.TypeNull:
		*r = Ref{}
		return nil
	}
	return fmt.Errorf("cannot decode %s into a document reference", t)
}
