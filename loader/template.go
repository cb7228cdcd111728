package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"text/template"
)

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"env":     os.Getenv,
		"default": defaultValue,
	}
}

// defaultValue returns def when v is empty. Arguments are ordered for
// pipelines: {{ env "X" | default "fallback" }}.
func defaultValue(def, v any) any {
	if v == nil {
		return def
	}
	rv := reflect.ValueOf(v)
	if rv.IsZero() {
		return def
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if rv.Len() == 0 {
			return def
		}
	}
	return v
}

func (l *Loader) render(src []byte) ([]byte, error) {
	tmpl, err := template.New(filepath.Base(l.path)).Funcs(l.funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", l.path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, l.data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", l.path, err)
	}
	return buf.Bytes(), nil
}
