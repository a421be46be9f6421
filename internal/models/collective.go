package models

// Collective is a named group with member and admin username lists.
type Collective struct {
	ID      string   `bson:"_id,omitempty" json:"_id,omitempty"`
	Rev     string   `bson:"rev,omitempty" json:"rev,omitempty"`
	Name    string   `bson:"name" json:"name"`
	Members []string `bson:"members" json:"members"`
	Admins  []string `bson:"admins" json:"admins"`
}
