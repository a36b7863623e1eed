// Package domain はestimationフィーチャーのドメインエラーを定義します。
package domain

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation は計算された物理量がありえない値（負・NaN・Inf）になったことを示します。
// 丸めて隠すことはせず、常に呼び出し元へ返します。
var ErrInvariantViolation = errors.New("invariant violation")

// InvariantViolationError は違反した量と値を保持します。
type InvariantViolationError struct {
	Quantity string
	Value    float64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s = %v", e.Quantity, e.Value)
}

// Is はerrors.Is(err, ErrInvariantViolation)を成立させます。
func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// Stage はパイプラインの段階です。
type Stage string

const (
	StageConfigure Stage = "configure"
	StageLoad      Stage = "load"
	StageLocate    Stage = "locate"
	StageSegment   Stage = "segment"
	StageResolve   Stage = "resolve"
	StageEstimate  Stage = "estimate"
	StageProject   Stage = "project"
)

// StageError は失敗した段階を示すラッパーです。
// 「屋根が見つからない」と「推定器の故障」を呼び出し元が区別できるようにします。
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf はエラーチェーン中のStageErrorの段階を返します。見つからない場合は空文字です。
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
