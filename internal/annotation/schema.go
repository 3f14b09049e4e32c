package annotation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
)

// Field 标注字段定义
type Field struct {
	Name     string   `mapstructure:"name" json:"name"`
	Required bool     `mapstructure:"required" json:"required"`
	Values   []string `mapstructure:"values" json:"values"` // 枚举值集合,为空表示自由文本
}

// Schema 标注字段模式
// 所有提交内容按固定的枚举值集合校验
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema 创建标注模式
func NewSchema(fields []Field) *Schema {
	s := &Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s
}

// DefaultSchema 返回默认标注模式
func DefaultSchema() *Schema {
	return NewSchema([]Field{
		{Name: "sentiment", Required: true, Values: []string{"positive", "neutral", "negative"}},
		{Name: "category", Required: true, Values: []string{"billing", "technical", "account", "other"}},
		{Name: "quality", Required: true, Values: []string{"high", "medium", "low"}},
		{Name: "notes", Required: false}, // 自由文本
	})
}

// Fields 返回字段定义(按声明顺序)
func (s *Schema) Fields() []Field {
	result := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.fields[name])
	}
	return result
}

// ValidateDraft 校验草稿内容
// 只校验已填写字段的枚举值,允许必填字段缺失
func (s *Schema) ValidateDraft(payload json.RawMessage) error {
	values, err := decodePayload(payload)
	if err != nil {
		return err
	}
	offending := s.checkValues(values)
	if len(offending) > 0 {
		return apperr.NewValidation(offending...)
	}
	return nil
}

// ValidateFinal 校验最终提交内容
// 在草稿校验的基础上,要求所有必填字段存在;返回全部不合法字段
func (s *Schema) ValidateFinal(payload json.RawMessage) error {
	values, err := decodePayload(payload)
	if err != nil {
		return err
	}
	offending := s.checkValues(values)
	for _, name := range s.order {
		f := s.fields[name]
		if !f.Required {
			continue
		}
		if v, ok := values[name]; !ok || v == "" {
			offending = append(offending, fmt.Sprintf("%s: required field missing", name))
		}
	}
	if len(offending) > 0 {
		sort.Strings(offending)
		return apperr.NewValidation(offending...)
	}
	return nil
}

// checkValues 校验已填写字段,返回所有不合法字段的描述
func (s *Schema) checkValues(values map[string]string) []string {
	var offending []string
	for name, v := range values {
		f, ok := s.fields[name]
		if !ok {
			offending = append(offending, fmt.Sprintf("%s: unknown field", name))
			continue
		}
		if len(f.Values) == 0 {
			continue
		}
		if v == "" {
			continue
		}
		allowed := false
		for _, candidate := range f.Values {
			if v == candidate {
				allowed = true
				break
			}
		}
		if !allowed {
			offending = append(offending, fmt.Sprintf("%s: value %q not in allowed set", name, v))
		}
	}
	sort.Strings(offending)
	return offending
}

// decodePayload 解析标注内容
// 标注内容必须是字符串到字符串的 JSON 对象
func decodePayload(payload json.RawMessage) (map[string]string, error) {
	if len(payload) == 0 {
		return nil, apperr.NewValidation("payload: empty")
	}
	var values map[string]string
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, apperr.NewValidation("payload: not a flat JSON object of strings")
	}
	return values, nil
}
