// Package domain はsegmentationフィーチャーのドメインエラーを定義します。
package domain

import (
	"errors"
	"fmt"
)

// ErrSegmentationUnavailable はモデルが利用できない、または推論に失敗したことを示します。
// 「屋根が見つからなかった」（空の結果）とは区別されます。
var ErrSegmentationUnavailable = errors.New("segmentation unavailable")

// SegmentationUnavailableError はインフラ側の失敗の詳細を保持します。
type SegmentationUnavailableError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *SegmentationUnavailableError) Error() string {
	msg := fmt.Sprintf("segmentation unavailable (backend %q): %s", e.Backend, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SegmentationUnavailableError) Unwrap() error { return e.Err }

// Is はerrors.Is(err, ErrSegmentationUnavailable)を成立させます。
func (e *SegmentationUnavailableError) Is(target error) bool {
	return target == ErrSegmentationUnavailable
}
