// Package domain はreportsフィーチャーのドメインエラーを定義します。
package domain

import "errors"

var (
	// ErrReportNotFound は指定されたIDのレポートが存在しないことを示します。
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidReport は保存できないレポート（IDなし・結果なし）を示します。
	ErrInvalidReport = errors.New("invalid report")
)
