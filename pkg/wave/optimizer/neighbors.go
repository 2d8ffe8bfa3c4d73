package optimizer

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/wavepick/wavepick/pkg/wave"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveOpen  MoveType = iota // 打开一个未选择的通道
	MoveSwap                  // 用未选择的通道替换已选择的通道
	MoveClose                 // 关闭一个已选择的通道
)

// String 返回移动类型名称
func (t MoveType) String() string {
	switch t {
	case MoveOpen:
		return "open"
	case MoveSwap:
		return "swap"
	case MoveClose:
		return "close"
	default:
		return fmt.Sprintf("MoveType(%d)", int(t))
	}
}

// Move 邻域移动操作
type Move struct {
	Type MoveType `json:"type"`
	In   int      `json:"in"`  // 打开的通道，关闭时为 -1
	Out  int      `json:"out"` // 关闭的通道，打开时为 -1
}

// OpenMove 打开通道
func OpenMove(in int) Move { return Move{Type: MoveOpen, In: in, Out: -1} }

// CloseMove 关闭通道
func CloseMove(out int) Move { return Move{Type: MoveClose, In: -1, Out: out} }

// SwapMove 交换通道
func SwapMove(in, out int) Move { return Move{Type: MoveSwap, In: in, Out: out} }

// Apply 在副本上执行移动，移动未改变解时返回 false
func (m Move) Apply(s *wave.Solution) (*wave.Solution, bool) {
	switch m.Type {
	case MoveOpen:
		c := s.Clone()
		return c, c.OpenAisle(m.In)
	case MoveClose:
		c := s.Clone()
		return c, c.CloseAisle(m.Out)
	case MoveSwap:
		c := s.SwapAisle(m.In, m.Out)
		return c, !c.SameAisles(s)
	}
	return s, false
}

// hashAisles 计算通道集合的哈希 (使用FNV-1a算法)
func hashAisles(s *wave.Solution) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for a, sel := range s.AisleSelected {
		if sel {
			binary.LittleEndian.PutUint64(buf[:], uint64(a))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// bestMove 在候选移动中找出目标值最高的结果，同分时取先出现的
// skip 非空时跳过被它拒绝的结果
func bestMove(s *wave.Solution, moves []Move, skip func(*wave.Solution) bool) (*wave.Solution, Move, bool) {
	var best *wave.Solution
	var bestMove Move
	for _, m := range moves {
		cand, changed := m.Apply(s)
		if !changed {
			continue
		}
		if skip != nil && skip(cand) {
			continue
		}
		if best == nil || cand.Objective > best.Objective {
			best = cand
			bestMove = m
		}
	}
	return best, bestMove, best != nil
}
