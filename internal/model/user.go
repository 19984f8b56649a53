package model

type Role string

const (
	RoleMember Role = "member"
	RoleMaster Role = "master"
)

type MemberType string

const (
	MemberHuman MemberType = "human"
	MemberPet   MemberType = "pet"
	MemberPlant MemberType = "plant"
	MemberAI    MemberType = "ai"
)

// User is a nest participant. Pets, plants and AI placeholders are users too.
type User struct {
	ID         int64      `json:"id"`
	Nickname   string     `json:"nickname"`
	AvatarID   int        `json:"avatar_id"`
	Role       Role       `json:"role"`
	MemberType MemberType `json:"member_type"`
	Email      string     `json:"email"`
}

// IsMaster reports whether u may run master-only mutations.
func (u *User) IsMaster() bool {
	return u != nil && u.Role == RoleMaster
}
