package models

// Profile visibility levels a user can choose from.
const (
	VisibilityEveryone = "everyone"
	VisibilityAccounts = "accounts"
	VisibilityMembers  = "members"
)

var Visibilities = []string{VisibilityEveryone, VisibilityAccounts, VisibilityMembers}

var PronounOptions = []string{"He/Him", "She/Her", "They/Them"}

// User is a stored account document. Hash and Salt never serialize to JSON;
// they stay inside the store and the auth path.
type User struct {
	ID          string   `bson:"_id,omitempty" json:"_id,omitempty"`
	Rev         string   `bson:"rev,omitempty" json:"rev,omitempty"`
	Username    string   `bson:"username" json:"username"`
	Email       string   `bson:"email" json:"email"`
	Visibility  string   `bson:"visibility" json:"visibility"`
	Collectives []string `bson:"collectives" json:"collectives"`
	Pronouns    string   `bson:"pronouns" json:"pronouns"`
	FullName    string   `bson:"fullName" json:"fullName"`
	CreatedAt   string   `bson:"createdAt" json:"createdAt"`
	UpdatedAt   string   `bson:"updatedAt" json:"updatedAt"`
	Hash        string   `bson:"hash" json:"-"`
	Salt        string   `bson:"salt" json:"-"`
}

// PublicUserFields is the projection served to admins when listing users.
var PublicUserFields = []string{
	"_id",
	"username",
	"email",
	"collectives",
	"visibility",
	"pronouns",
	"fullName",
}
