package optimizer

import (
	"context"
	"math/rand"
	"sort"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/wave"
)

// Refiner 改进算法接口
type Refiner interface {
	// Refine 从初始解出发返回改进后的解，初始解保持不变
	// 取消时返回目前为止最好的解和 ctx.Err()
	Refine(ctx context.Context, initial *wave.Solution, rng *rand.Rand) (*wave.Solution, error)

	// Name 返回算法名称
	Name() string
}

const (
	NameNone        = "none"
	NameLocalSearch = "local"
	NameClusterVNS  = "vns"
	NameALNS        = "alns"
)

// Options 创建改进算法所需的配置
type Options struct {
	LocalSearch *LocalSearchConfig
	VNS         *VNSConfig
	ALNS        *ALNSConfig
}

// NewRefiner 按名称创建改进算法
func NewRefiner(name string, opts Options) (Refiner, error) {
	switch name {
	case NameNone, "":
		return identity{}, nil
	case NameLocalSearch:
		return NewLocalSearch(opts.LocalSearch), nil
	case NameClusterVNS:
		return NewClusterVNS(opts.VNS, nil), nil
	case NameALNS:
		return NewALNS(opts.ALNS), nil
	}
	return nil, errors.UnknownStrategy("refinement", name)
}

// RefinerNames 返回支持的改进算法名称
func RefinerNames() []string {
	names := []string{NameNone, NameLocalSearch, NameClusterVNS, NameALNS}
	sort.Strings(names)
	return names
}

// identity 不做任何改进
type identity struct{}

func (identity) Name() string { return NameNone }

func (identity) Refine(_ context.Context, initial *wave.Solution, _ *rand.Rand) (*wave.Solution, error) {
	return initial.Clone(), nil
}
