// Package domain はimageryフィーチャーのドメインエラーを定義します。
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage は画像がデコードできない、または寸法が不整合であることを示します。
	ErrInvalidImage = errors.New("invalid image")

	// ErrMissingScale は地上分解能（m/pixel）が決定できないことを示します。
	// 面積計算が不可能になるため、デフォルト値で補ってはいけません。
	ErrMissingScale = errors.New("missing ground-sample distance")
)

// InvalidImageError は不正な画像入力の詳細を保持します。
type InvalidImageError struct {
	Reason string
	Err    error
}

func (e *InvalidImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image: %s: %v", e.Reason, e.Err)
	}
	return "invalid image: " + e.Reason
}

func (e *InvalidImageError) Unwrap() error { return e.Err }

// Is はerrors.Is(err, ErrInvalidImage)を成立させます。
func (e *InvalidImageError) Is(target error) bool { return target == ErrInvalidImage }

// MissingScaleError は地上分解能が得られなかった理由を保持します。
type MissingScaleError struct {
	Reason string
}

func (e *MissingScaleError) Error() string {
	return "missing ground-sample distance: " + e.Reason
}

// Is はerrors.Is(err, ErrMissingScale)を成立させます。
func (e *MissingScaleError) Is(target error) bool { return target == ErrMissingScale }
