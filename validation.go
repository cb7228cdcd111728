package configurator

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reoring/configurator/cast"
)

var tags = validator.New()

type rule struct {
	name  string
	check func(v any) error
}

func (o *Option) buildRules(reg *cast.Registry, d *definition) ([]rule, error) {
	if d.noValidation {
		switch {
		case d.hasExpect:
			return nil, fmt.Errorf("%w: can't disable validations and set an expectation at the same time", ErrOptionInvalidArgument)
		case d.typeValidator != nil:
			return nil, fmt.Errorf("%w: can't disable validations and assign a type validator at the same time", ErrOptionInvalidArgument)
		case d.validate != nil || d.tag != "":
			return nil, fmt.Errorf("%w: can't disable validations and add a validation rule at the same time", ErrOptionInvalidArgument)
		}
		return nil, nil
	}

	var rules []rule
	if fn := d.typeValidator; fn != nil {
		rules = append(rules, rule{RuleType, func(v any) error {
			if fn(v) {
				return nil
			}
			return o.reject(v, RuleType, withSuffix("fails to validate as custom type", d.typeMsg))
		}})
	} else {
		rules = append(rules, rule{RuleType, func(v any) error {
			if reg.Check(o.typ, v) {
				return nil
			}
			return o.reject(v, RuleType, "fails to validate as "+o.typ.String())
		}})
	}

	if fn := d.validate; fn != nil {
		rules = append(rules, rule{RuleValidate, func(v any) error {
			if fn(v) {
				return nil
			}
			return o.reject(v, RuleValidate, withSuffix("fails custom validation rule", d.validateMsg))
		}})
	}

	if d.hasExpect {
		rules = append(rules, expectRule(o, d.expect, d.expectMsg))
	}

	if d.tag != "" {
		if err := checkTag(d.tag); err != nil {
			return nil, err
		}
		tag := d.tag
		rules = append(rules, rule{RuleTag, func(v any) (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = o.reject(v, RuleTag, fmt.Sprintf("fails validation tag %q: %v", tag, p))
				}
			}()
			if verr := tags.Var(v, tag); verr != nil {
				ve := o.reject(v, RuleTag, fmt.Sprintf("fails validation tag %q", tag))
				ve.Err = verr
				return ve
			}
			return nil
		}})
	}
	return rules, nil
}

// checkTag rejects tags naming unknown validator functions. Parameter errors
// depend on the value kind and only surface when a value is checked.
func checkTag(tag string) (err error) {
	defer func() {
		if p := recover(); p != nil && strings.Contains(fmt.Sprint(p), "Undefined validation function") {
			err = fmt.Errorf("%w: invalid validation tag %q: %v", ErrOptionInvalidArgument, tag, p)
		}
	}()
	_ = tags.Var("", tag)
	return nil
}

func expectRule(o *Option, expect any, msg string) rule {
	if fn, ok := expect.(func(any) bool); ok {
		return rule{RuleExpect, func(v any) error {
			if fn(v) {
				return nil
			}
			return o.reject(v, RuleExpect, withSuffix("fails custom expectation", msg))
		}}
	}

	// Literals and values are compared in canonical form, so int64 and
	// float64 data from decoders match int expectations.
	ev := reflect.ValueOf(expect)
	if ev.Kind() == reflect.Slice || ev.Kind() == reflect.Array {
		allowed := make([]any, ev.Len())
		names := make([]string, ev.Len())
		for i := range allowed {
			allowed[i] = o.canonical(ev.Index(i).Interface())
			names[i] = inspect(allowed[i])
		}
		return rule{RuleExpect, func(v any) error {
			cv := o.canonical(v)
			for _, a := range allowed {
				if reflect.DeepEqual(a, cv) {
					return nil
				}
			}
			return o.reject(v, RuleExpect, withSuffix("not in list: "+strings.Join(names, ", "), msg))
		}}
	}

	want := o.canonical(expect)
	return rule{RuleExpect, func(v any) error {
		if reflect.DeepEqual(want, o.canonical(v)) {
			return nil
		}
		return o.reject(v, RuleExpect, withSuffix("is not "+inspect(want), msg))
	}}
}

// canonical converts v with the option's caster. Values the caster rejects
// are compared as they are.
func (o *Option) canonical(v any) any {
	if o.caster == nil {
		return v
	}
	cv, err := o.caster.Convert(v)
	if err != nil {
		return v
	}
	return cv
}

// Validate runs the option's rules against v. When v only fails the type
// rule, the rules run again on the cast value; a failed cast reports the
// original type failure. Other rule failures are returned as they are.
func (o *Option) Validate(v any) error {
	if o.typ.Kind() == cast.KindAny && len(o.rules) == 0 {
		return nil
	}
	err := o.runRules(v)
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Rule != RuleType {
		return err
	}
	cv, cerr := o.caster.Convert(v)
	if cerr != nil {
		return err
	}
	return o.runRules(cv)
}

func (o *Option) runRules(v any) error {
	for _, r := range o.rules {
		if err := r.check(v); err != nil {
			return err
		}
	}
	return nil
}

func (o *Option) reject(v any, ruleName, msg string) *ValidationError {
	return &ValidationError{
		Path:    o.PathName(),
		Value:   v,
		Rule:    ruleName,
		Message: inspect(v) + " " + msg,
	}
}

func withSuffix(msg, extra string) string {
	if extra == "" {
		return msg
	}
	return msg + ": " + extra
}

func inspect(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case cast.Symbol:
		return ":" + string(x)
	case nil:
		return "nil"
	}
	return fmt.Sprintf("%v", v)
}
