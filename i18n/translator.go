package i18n

import (
	"fmt"
	"sync"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "key" or "expected").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "required":
			return "必須オプションに値がありません"
		case "unknown_key":
			if k := data["key"]; k != "" {
				return fmt.Sprintf("未知のキーです (%s)", k)
			}
			return "未知のキーです"
		case "invalid_type":
			return "型が不正です"
		case "invalid_value":
			return "値が拒否されました"
		case "resolution_error":
			return "値を解決できません"
		}
	default: // "en"
		switch code {
		case "required":
			return "option required but nil value"
		case "unknown_key":
			if k := data["key"]; k != "" {
				return fmt.Sprintf("unable to load data for unknown key %q", k)
			}
			return "unknown key"
		case "invalid_type":
			if e := data["expected"]; e != "" {
				return "invalid load data, expected " + e
			}
			return "invalid type"
		case "invalid_value":
			return "value rejected"
		case "resolution_error":
			return "value could not be resolved"
		}
	}
	return code
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
