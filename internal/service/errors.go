package service

import (
	"errors"
	"fmt"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/repository"
)

// サービス層の共通エラー。ハンドラー層で HTTP ステータスへ変換される。
var (
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("forbidden")
	ErrValidation            = errors.New("validation failed")
	ErrQuoteAlreadyGenerated = errors.New("quote already generated")
	// ErrConflict is returned when a guarded status update finds the row
	// changed by a concurrent writer.
	ErrConflict = errors.New("project was modified concurrently")
)

// ErrInvalidTransition は許可されていない状態遷移を表す
type ErrInvalidTransition struct {
	From model.Status
	To   model.Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// validationError wraps a field-level message under ErrValidation so
// handlers can map it to 400 while keeping the detail.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// casConflict は compare-and-set 失敗（0行更新）を競合エラーへ変換する。
// 事前の GetByID が成功している以上、行がないのではなく状態が変わっている。
func casConflict(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrConflict
	}
	return err
}
