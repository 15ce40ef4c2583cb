package models

import (
	"gorm.io/gorm"
)

// User is a support-agent account. Passwords are stored as bcrypt hashes and
// never serialized back out.
type User struct {
	gorm.Model

	Username string `gorm:"unique;not null" json:"username"`
	FullName string `gorm:"size:255" json:"full_name"`
	Password string `gorm:"size:255" json:"-"`
}

func (User) TableName() string {
	return "users"
}
