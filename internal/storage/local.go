package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage はローカルファイルシステム上のストレージ（開発用）
type LocalStorage struct {
	root      string // オブジェクトの置き場所
	urlPrefix string // 公開 URL のプレフィックス（静的配信を想定）
}

// NewLocalStorage は LocalStorage を生成する
func NewLocalStorage(root, urlPrefix string) *LocalStorage {
	return &LocalStorage{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// SignURL はローカル配信用の URL を返す。有効期限は無視される。
func (s *LocalStorage) SignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return s.urlPrefix + "/" + key, nil
}

// Delete はファイルを削除する。存在しない場合はエラーにしない。
// root の外を指すキーは拒否する。
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	clean, err := safeKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// safeKey はキーを正規化し、root から出るパスを拒否する
func safeKey(key string) (string, error) {
	clean := path.Clean(key)
	if clean == "." || clean == ".." ||
		path.IsAbs(clean) || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return clean, nil
}
