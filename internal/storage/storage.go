// Package storage abstracts where uploaded project files live.
// ローカル FS と S3 互換ストレージ（S3 / R2 / MinIO）を差し替え可能にする。
package storage

import (
	"context"
	"time"
)

// Storage はアップロード済みオブジェクトへのアクセスを提供する。
// アップロード自体はフロントエンドから直接行われるため、ここでは
// 参照 URL の発行と削除のみを扱う。
type Storage interface {
	// SignURL returns a URL granting read access to the object for the
	// given duration. Local storage ignores the expiry.
	SignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
