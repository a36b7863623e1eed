// Package domain はirradianceフィーチャーのドメインエラーを定義します。
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLocation は対応していない地点が指定されたことを示します。既定値で代用することはありません。
var ErrUnsupportedLocation = errors.New("unsupported location")

// UnsupportedLocationError は要求された地点と対応地点の一覧を保持します。
type UnsupportedLocationError struct {
	Requested string
	Supported []string
}

func (e *UnsupportedLocationError) Error() string {
	return fmt.Sprintf("unsupported location %q (supported: %s)", e.Requested, strings.Join(e.Supported, ", "))
}

// Is はerrors.Is(err, ErrUnsupportedLocation)を成立させます。
func (e *UnsupportedLocationError) Is(target error) bool {
	return target == ErrUnsupportedLocation
}
