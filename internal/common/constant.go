package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultCardColor is applied to items saved without an explicit color.
const DefaultCardColor = "#7c3aed"

// Document collections.
const (
	CollectionUsers  = "users"
	CollectionLinks  = "links"
	CollectionNotes  = "notes"
	CollectionTodos  = "todos"
	CollectionImages = "images"
)

// ItemCollections lists the collections holding user-owned items.
var ItemCollections = []string{CollectionLinks, CollectionNotes, CollectionTodos, CollectionImages}

// Document field names the server inspects.
const (
	FieldOwnerID      = "ownerId"
	FieldEmail        = "email"
	FieldName         = "name"
	FieldBio          = "bio"
	FieldAvatarURL    = "avatarUrl"
	FieldBannerID     = "bannerId"
	FieldIsAdmin      = "isAdmin"
	FieldIsOwner      = "isOwner"
	FieldIsBetaTester = "isBetaTester"
	FieldIsPremium    = "isPremium"
	FieldCreatedAt    = "createdAt"
	FieldUpdatedAt    = "updatedAt"
)
