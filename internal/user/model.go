package user

import "time"

type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	RoleLevel int       `db:"role_level" json:"role_level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
