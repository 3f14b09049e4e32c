package annotation_test

import (
	"encoding/json"
	"testing"

	"github.com/Phuduong999/annotation-platform-sub000/internal/annotation"
	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateDraftAllowsPartial 草稿允许必填字段缺失
func TestValidateDraftAllowsPartial(t *testing.T) {
	schema := annotation.DefaultSchema()

	err := schema.ValidateDraft(json.RawMessage(`{"sentiment":"positive"}`))
	assert.NoError(t, err)

	// 空对象也是合法草稿
	err = schema.ValidateDraft(json.RawMessage(`{}`))
	assert.NoError(t, err)
}

// TestValidateDraftRejectsBadEnum 草稿中已填写字段仍按枚举校验
func TestValidateDraftRejectsBadEnum(t *testing.T) {
	schema := annotation.DefaultSchema()

	err := schema.ValidateDraft(json.RawMessage(`{"sentiment":"ecstatic"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

// TestValidateDraftRejectsUnknownField 未知字段返回校验错误
func TestValidateDraftRejectsUnknownField(t *testing.T) {
	schema := annotation.DefaultSchema()

	err := schema.ValidateDraft(json.RawMessage(`{"mood":"good"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

// TestValidateFinalComplete 完整内容通过最终校验
func TestValidateFinalComplete(t *testing.T) {
	schema := annotation.DefaultSchema()

	payload := json.RawMessage(`{"sentiment":"positive","category":"billing","quality":"high","notes":"ok"}`)
	assert.NoError(t, schema.ValidateFinal(payload))

	// 自由文本字段可以缺失
	payload = json.RawMessage(`{"sentiment":"negative","category":"other","quality":"low"}`)
	assert.NoError(t, schema.ValidateFinal(payload))
}

// TestValidateFinalReportsAllOffendingFields 一次返回全部不合法字段
func TestValidateFinalReportsAllOffendingFields(t *testing.T) {
	schema := annotation.DefaultSchema()

	// sentiment 值非法,category 与 quality 缺失
	err := schema.ValidateFinal(json.RawMessage(`{"sentiment":"ecstatic"}`))
	require.Error(t, err)

	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 3)
}

// TestValidateFinalMissingRequired 必填字段缺失被拒绝
func TestValidateFinalMissingRequired(t *testing.T) {
	schema := annotation.DefaultSchema()

	err := schema.ValidateFinal(json.RawMessage(`{"sentiment":"positive","category":"billing"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

// TestValidatePayloadShape 非对象内容被拒绝
func TestValidatePayloadShape(t *testing.T) {
	schema := annotation.DefaultSchema()

	assert.Error(t, schema.ValidateDraft(nil))
	assert.Error(t, schema.ValidateDraft(json.RawMessage(`"text"`)))
	assert.Error(t, schema.ValidateFinal(json.RawMessage(`[1,2,3]`)))
}

// TestCustomSchema 配置化模式按声明字段校验
func TestCustomSchema(t *testing.T) {
	schema := annotation.NewSchema([]annotation.Field{
		{Name: "label", Required: true, Values: []string{"spam", "ham"}},
	})

	assert.NoError(t, schema.ValidateFinal(json.RawMessage(`{"label":"spam"}`)))
	assert.Error(t, schema.ValidateFinal(json.RawMessage(`{"label":"eggs"}`)))
	assert.Error(t, schema.ValidateFinal(json.RawMessage(`{}`)))

	fields := schema.Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "label", fields[0].Name)
}
