// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDは外部IdPが発行したものをそのまま使用する。
type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserData はユーザー作成用のデータ。
type CreateUserData struct {
	ID        string
	Email     string
	Name      string
	AvatarURL *string
}

// UpdateUserData はユーザー更新用のデータ。
// nilのフィールドは変更しない。
type UpdateUserData struct {
	Name      *string
	AvatarURL *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (d UpdateUserData) IsEmpty() bool {
	return d.Name == nil && d.AvatarURL == nil
}
