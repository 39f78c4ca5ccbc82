package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	Base
	Username    string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Role        UserRole   `gorm:"size:20;default:'user'" json:"role"`
	Status      UserStatus `gorm:"size:20;default:'pending'" json:"status"`
	APIKey      string     `gorm:"size:255" json:"-"`
	SecretKey   string     `gorm:"size:255" json:"-"`
	LastLoginAt *time.Time `json:"last_login_at"`

	// HasAPIKey is derived for responses, never stored.
	HasAPIKey bool `gorm:"-" json:"has_api_key"`
}

func (u *User) TableName() string {
	return "users"
}

func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) CheckPassword(plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain))
}

// Sanitize strips credential material before the user is written to a response.
func (u *User) Sanitize() *User {
	u.HasAPIKey = u.APIKey != "" && u.SecretKey != ""
	u.Password = ""
	u.APIKey = ""
	u.SecretKey = ""
	return u
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
