package models

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleManager        Role = "MANAGER"
	RoleSalesExecutive Role = "SALES_EXECUTIVE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSalesExecutive:
		return true
	}
	return false
}

// Privileged reports whether the role may act on leads it does not own.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `gorm:"not null" json:"firstName"`
	LastName     string `gorm:"not null" json:"lastName"`
	Role         Role   `gorm:"not null;index;default:'SALES_EXECUTIVE'" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"isActive"`

	// Relationships
	Leads []Lead `gorm:"foreignKey:OwnerID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
