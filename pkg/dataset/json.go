package dataset

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/model"
)

// ParseJSON 解析 JSON 格式实例
//
//	{"items": 3, "orders": [[[0, 2], [1, 1]], ...], "aisles": [[[0, 5]], ...], "lb": 1, "ub": 10}
func ParseJSON(data []byte) (*model.Problem, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.InvalidInstance("JSON 格式错误")
	}
	root := gjson.ParseBytes(data)

	for _, key := range []string{"items", "orders", "aisles", "lb", "ub"} {
		if !root.Get(key).Exists() {
			return nil, errors.InvalidInstance(fmt.Sprintf("缺少字段 %s", key))
		}
	}

	orders, err := readLists(root.Get("orders"), "orders")
	if err != nil {
		return nil, err
	}
	aisles, err := readLists(root.Get("aisles"), "aisles")
	if err != nil {
		return nil, err
	}

	return model.NewProblem(
		int(root.Get("items").Int()),
		orders,
		aisles,
		int(root.Get("lb").Int()),
		int(root.Get("ub").Int()),
	)
}

// readLists 读取 [[[item, qty], ...], ...]
func readLists(v gjson.Result, field string) ([]model.ItemList, error) {
	if !v.IsArray() {
		return nil, errors.InvalidInstance(fmt.Sprintf("字段 %s 应为数组", field))
	}
	var lists []model.ItemList
	var err error
	v.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsArray() {
			err = errors.InvalidInput(fmt.Sprintf("%s[%d]", field, len(lists)), "应为 [item, qty] 数组")
			return false
		}
		m := make(map[int]int)
		entry.ForEach(func(_, pair gjson.Result) bool {
			arr := pair.Array()
			if len(arr) != 2 {
				err = errors.InvalidInput(fmt.Sprintf("%s[%d]", field, len(lists)), "物品应为 [item, qty]")
				return false
			}
			item := int(arr[0].Int())
			if _, dup := m[item]; dup {
				err = errors.InvalidInput(fmt.Sprintf("%s[%d]", field, len(lists)), fmt.Sprintf("物品 %d 重复", item))
				return false
			}
			m[item] = int(arr[1].Int())
			return true
		})
		if err != nil {
			return false
		}
		lists = append(lists, model.NewItemList(m))
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInstance, "实例结构错误")
	}
	if lists == nil {
		lists = make([]model.ItemList, 0)
	}
	return lists, nil
}
