package model

// User is a stored account. PasswordHash holds the hasher's digest, never the plaintext.
type User struct {
	Id           int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string `json:"-" gorm:"column:password;size:100;not null"`
	Role         string `json:"role" gorm:"size:100;not null"`
}

func (User) TableName() string {
	return "user"
}
