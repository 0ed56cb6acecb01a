package model

import "time"

// 用户角色。角色是描述性元数据，真正的权限判断按实体关系
// （buyer_id / seller_id 比对）进行。
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
)

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"` // BUYER / SELLER
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
