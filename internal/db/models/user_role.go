package models

// UserRole represents the many-to-many relationship between users and roles.
// The composite primary key guarantees a (user, role) pair is stored at most once.
// When either the user or the role is deleted the assignment goes with it (CASCADE).
type UserRole struct {
	// UserID is the ID of the user holding the role.
	UserID uint64 `gorm:"primaryKey;column:user_id" json:"user_id"`
	// RoleID is the ID of the assigned role.
	RoleID uint `gorm:"primaryKey;column:role_id" json:"role_id"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}
