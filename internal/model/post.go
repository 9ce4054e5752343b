package model

import "time"

// Post はユーザーの投稿を表す。
type Post struct {
	ID        int64
	UserID    string
	Content   string
	ImageURL  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePostData は投稿作成用のデータ。
type CreatePostData struct {
	UserID   string
	Content  string
	ImageURL *string
}

// UpdatePostData は投稿更新用のデータ。
// nilのフィールドは変更しない。
type UpdatePostData struct {
	Content  *string
	ImageURL *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (d UpdatePostData) IsEmpty() bool {
	return d.Content == nil && d.ImageURL == nil
}
