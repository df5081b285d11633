package models

import "time"

// User is owned by the web application; this service only reads it.
type User struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Email     string    `gorm:"column:email;type:varchar(255)" json:"email"`
	Name      string    `gorm:"column:name;type:varchar(255)" json:"name"`
	Role      string    `gorm:"column:role;type:varchar(32)" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
