package model

// User 本地使用者, 由身分解析流程建立與維護
// ExternalID 為 auth provider 的 subject
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ExternalID  string `gorm:"type:varchar(255);not null;uniqueIndex" json:"external_id"`
	Username    string `gorm:"type:varchar(255);not null" json:"username"`
	Email       string `gorm:"type:varchar(255)" json:"email"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	IsAdmin     bool   `gorm:"not null;default:false" json:"is_admin"`
	BaseModel
}

func (User) TableName() string {
	return "users"
}
