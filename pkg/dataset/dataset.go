package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/wavepick/wavepick/pkg/errors"
	"github.com/wavepick/wavepick/pkg/model"
)

// Load 按扩展名读取实例文件，.json 为 JSON 格式，其余按文本格式解析
func Load(path string) (*model.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "读取实例文件失败").WithField("path", path)
	}
	return Parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// Parse 解析内存中的实例，isJSON 为 false 时按文本格式
func Parse(data []byte, isJSON bool) (*model.Problem, error) {
	if isJSON {
		return ParseJSON(data)
	}
	return ParseText(bytes.NewReader(data))
}

// Name 从路径得到数据集名称
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
