// Package dataset 读取和写出问题实例
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/model"
)

// ParseText 解析文本格式实例
//
//	o i a
//	o 行订单:  n item qty item qty ...
//	a 行通道:  n item qty item qty ...
//	lb ub
func ParseText(r io.Reader) (*model.Problem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	next := func() ([]int, error) {
		for sc.Scan() {
			line++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			nums := make([]int, len(fields))
			for i, f := range fields {
				n, err := strconv.Atoi(f)
				if err != nil {
					return nil, invalid(line, "非整数字段 %q", f)
				}
				nums[i] = n
			}
			return nums, nil
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInstance, "读取实例失败")
		}
		return nil, invalid(line, "文件提前结束")
	}

	header, err := next()
	if err != nil {
		return nil, err
	}
	if len(header) != 3 {
		return nil, invalid(line, "首行应为 o i a，实际 %d 个字段", len(header))
	}
	orderCount, itemCount, aisleCount := header[0], header[1], header[2]
	if orderCount < 0 || itemCount < 0 || aisleCount < 0 {
		return nil, invalid(line, "数量不能为负")
	}

	readLists := func(n int) ([]model.ItemList, error) {
		lists := make([]model.ItemList, n)
		for i := 0; i < n; i++ {
			nums, err := next()
			if err != nil {
				return nil, err
			}
			list, err := parseList(nums)
			if err != nil {
				return nil, invalid(line, "%v", err)
			}
			lists[i] = list
		}
		return lists, nil
	}

	orders, err := readLists(orderCount)
	if err != nil {
		return nil, err
	}
	aisles, err := readLists(aisleCount)
	if err != nil {
		return nil, err
	}

	bounds, err := next()
	if err != nil {
		return nil, err
	}
	if len(bounds) != 2 {
		return nil, invalid(line, "末行应为 lb ub，实际 %d 个字段", len(bounds))
	}

	return model.NewProblem(itemCount, orders, aisles, bounds[0], bounds[1])
}

// parseList 解析 "n item qty ..." 行
func parseList(nums []int) (model.ItemList, error) {
	n := nums[0]
	if n < 0 || len(nums) != 1+2*n {
		return nil, fmt.Errorf("声明 %d 个物品，实际字段数 %d", n, len(nums))
	}
	m := make(map[int]int, n)
	for k := 0; k < n; k++ {
		item, qty := nums[1+2*k], nums[2+2*k]
		if _, dup := m[item]; dup {
			return nil, fmt.Errorf("物品 %d 重复", item)
		}
		m[item] = qty
	}
	return model.NewItemList(m), nil
}

func invalid(line int, format string, args ...interface{}) error {
	return errors.New(errors.CodeInvalidInstance, fmt.Sprintf(format, args...)).
		WithField("line", line)
}

// WriteText 以文本格式写出实例
func WriteText(w io.Writer, p *model.Problem) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", p.OrderCount, p.ItemCount, p.AisleCount)
	for _, lists := range [][]model.ItemList{p.Orders, p.Aisles} {
		for _, list := range lists {
			bw.WriteString(strconv.Itoa(len(list)))
			for _, e := range list {
				fmt.Fprintf(bw, " %d %d", e.Item, e.Qty)
			}
			bw.WriteByte('\n')
		}
	}
	fmt.Fprintf(bw, "%d %d\n", p.LowerBound, p.UpperBound)
	return bw.Flush()
}
