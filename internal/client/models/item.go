package models

import (
	"time"
)

// Item is implemented by Link, Note, Todo and Image.
type Item interface {
	ItemID() string
	ItemOwner() string
	ItemKind() Kind
	// SearchText returns the texts a search query is matched against.
	SearchText() []string
	// Validate checks the item before it is written.
	Validate() error
}

// Link is a saved bookmark.
type Link struct {
	ID          string    `json:"-"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	IsShortened bool      `json:"isShortened"`
	CardColor   string    `json:"cardColor"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

func (l Link) ItemID() string       { return l.ID }
func (l Link) ItemOwner() string    { return l.OwnerID }
func (Link) ItemKind() Kind         { return KindLink }
func (l *Link) SetID(id string)     { l.ID = id }
func (l Link) SearchText() []string { return []string{l.Name, l.Description, l.URL} }

// Note is a free text note.
type Note struct {
	ID        string    `json:"-"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Content   string    `json:"content,omitempty"`
	CardColor string    `json:"cardColor"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (n Note) ItemID() string       { return n.ID }
func (n Note) ItemOwner() string    { return n.OwnerID }
func (Note) ItemKind() Kind         { return KindNote }
func (n *Note) SetID(id string)     { n.ID = id }
func (n Note) SearchText() []string { return []string{n.Name, n.Content} }

// Task is one entry of a todo checklist. Tasks have no identity of their
// own and are addressed by position.
type Task struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Todo is a titled checklist.
type Todo struct {
	ID          string    `json:"-"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CardColor   string    `json:"cardColor"`
	Tasks       []Task    `json:"tasks"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

func (t Todo) ItemID() string    { return t.ID }
func (t Todo) ItemOwner() string { return t.OwnerID }
func (Todo) ItemKind() Kind      { return KindTodo }
func (t *Todo) SetID(id string)  { t.ID = id }

func (t Todo) SearchText() []string {
	out := []string{t.Title, t.Description}
	for _, task := range t.Tasks {
		out = append(out, task.Text)
	}
	return out
}

// Image is an uploaded picture kept inline as a data URL.
type Image struct {
	ID          string    `json:"-"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	CardColor   string    `json:"cardColor"`
	ImageData   string    `json:"imageData"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

func (i Image) ItemID() string       { return i.ID }
func (i Image) ItemOwner() string    { return i.OwnerID }
func (Image) ItemKind() Kind         { return KindImage }
func (i *Image) SetID(id string)     { i.ID = id }
func (i Image) SearchText() []string { return []string{i.Title, i.Description} }
