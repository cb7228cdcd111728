package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	t.Cleanup(func() { SetLanguage("en") })

	assert.Equal(t, "option required but nil value", T("required", nil))
	assert.Equal(t, `unable to load data for unknown key "hots"`, T("unknown_key", map[string]string{"key": "hots"}))
	assert.Equal(t, "not_a_code", T("not_a_code", nil))

	SetLanguage("ja")
	assert.NotEqual(t, "invalid type", T("invalid_type", nil))
	assert.Contains(t, T("unknown_key", map[string]string{"key": "hots"}), "hots")

	SetLanguage("fr")
	assert.Equal(t, "invalid type", T("invalid_type", nil))
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "X:" + code }

func TestSetTranslator(t *testing.T) {
	t.Cleanup(func() { SetTranslator(nil) })

	SetTranslator(upper{})
	assert.Equal(t, "X:required", T("required", nil))

	SetTranslator(nil)
	assert.Equal(t, "value rejected", T("invalid_value", nil))
}
