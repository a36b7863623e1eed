// Package domain はgeometryフィーチャーのドメインエラーを定義します。
package domain

import "errors"

var (
	// ErrInvalidMask はマスクが画像範囲外の画素を含むなど、ラスターと整合しないことを示します。
	ErrInvalidMask = errors.New("mask does not match raster")
	// ErrInvalidPolicy は実行可能性判定のパラメータが不正であることを示します。
	ErrInvalidPolicy = errors.New("invalid viability policy")
)
