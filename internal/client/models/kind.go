// Package models defines the LinkStash item kinds, the user profile and the
// rules for converting them to and from store documents.
package models

import (
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/common"
)

// Kind classifies an item.
type Kind string

const (
	KindLink  Kind = "link"
	KindNote  Kind = "note"
	KindTodo  Kind = "todo"
	KindImage Kind = "image"
)

// Kinds lists every item kind in display order.
var Kinds = []Kind{KindLink, KindNote, KindTodo, KindImage}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown item kind %q", ErrValidation, s)
}

// Collection is the store collection holding items of kind k.
func (k Kind) Collection() string {
	switch k {
	case KindLink:
		return common.CollectionLinks
	case KindNote:
		return common.CollectionNotes
	case KindTodo:
		return common.CollectionTodos
	case KindImage:
		return common.CollectionImages
	}
	return ""
}

// Tracked reports whether items of kind k carry an updatedAt stamp.
func (k Kind) Tracked() bool {
	return k == KindNote || k == KindImage
}
