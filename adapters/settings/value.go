package settings

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"gencost/internal/errors"
)

// Attribute decoding. Expression values are never passed through
// blindly: anything unknown, null or mistyped is an authoring error
// reported with its source position.

// attrValue evaluates an attribute expression. Scenario files are
// literal, so evaluation runs with no variable scope and unknown
// values are rejected.
func attrValue(attr *hcl.Attribute) (cty.Value, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, errors.Configf("%s: %s must be a literal value", attr.Range, attr.Name)
	}
	if !val.IsKnown() || val.IsNull() {
		return cty.NilVal, errors.Configf("%s: %s has no usable value", attr.Range, attr.Name)
	}
	return val, nil
}

func stringAttr(attr *hcl.Attribute) (string, error) {
	val, err := attrValue(attr)
	if err != nil {
		return "", err
	}
	if val.Type() != cty.String {
		return "", typeError(attr, val, "a string")
	}
	return val.AsString(), nil
}

func floatAttr(attr *hcl.Attribute) (float64, error) {
	val, err := attrValue(attr)
	if err != nil {
		return 0, err
	}
	if val.Type() != cty.Number {
		return 0, typeError(attr, val, "a number")
	}
	f, _ := val.AsBigFloat().Float64()
	return f, nil
}

func intAttr(attr *hcl.Attribute) (int, error) {
	f, err := floatAttr(attr)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func boolAttr(attr *hcl.Attribute) (bool, error) {
	val, err := attrValue(attr)
	if err != nil {
		return false, err
	}
	if val.Type() != cty.Bool {
		return false, typeError(attr, val, "a bool")
	}
	return val.True(), nil
}

// stringListAttr accepts a list or tuple of strings.
func stringListAttr(attr *hcl.Attribute) ([]string, error) {
	val, err := attrValue(attr)
	if err != nil {
		return nil, err
	}
	return stringList(attr, val)
}

func stringList(attr *hcl.Attribute, val cty.Value) ([]string, error) {
	t := val.Type()
	if !t.IsListType() && !t.IsTupleType() && !t.IsSetType() {
		return nil, typeError(attr, val, "a list of strings")
	}
	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.IsNull() || elem.Type() != cty.String {
			return nil, typeError(attr, val, "a list of strings")
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// stringListMapAttr accepts an object or map whose values are string
// lists.
func stringListMapAttr(attr *hcl.Attribute) (map[string][]string, error) {
	val, err := attrValue(attr)
	if err != nil {
		return nil, err
	}
	t := val.Type()
	if !t.IsObjectType() && !t.IsMapType() {
		return nil, typeError(attr, val, "a map of string lists")
	}
	out := make(map[string][]string, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		list, err := stringList(attr, elem)
		if err != nil {
			return nil, err
		}
		out[key.AsString()] = list
	}
	return out, nil
}

// filterValue renders a cluster scenario filter to the string form
// descriptor attributes use. Booleans render as "True"/"False", the
// casing site metadata columns carry.
func filterValue(attr *hcl.Attribute) (string, error) {
	val, err := attrValue(attr)
	if err != nil {
		return "", err
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Bool:
		if val.True() {
			return "True", nil
		}
		return "False", nil
	case cty.Number:
		return val.AsBigFloat().Text('f', -1), nil
	}
	return "", typeError(attr, val, "a string, number or bool")
}

func typeError(attr *hcl.Attribute, val cty.Value, want string) error {
	return errors.Configf("%s: %s must be %s, got %s",
		attr.Range, attr.Name, want, val.Type().FriendlyName())
}

// optString and friends read attributes the block schema marks
// optional; absent attributes decode to zero values.
func optString(attrs hcl.Attributes, name string) (string, error) {
	attr, ok := attrs[name]
	if !ok {
		return "", nil
	}
	return stringAttr(attr)
}

func optInt(attrs hcl.Attributes, name string) (int, error) {
	attr, ok := attrs[name]
	if !ok {
		return 0, nil
	}
	return intAttr(attr)
}

func optFloat(attrs hcl.Attributes, name string) (float64, error) {
	attr, ok := attrs[name]
	if !ok {
		return 0, nil
	}
	return floatAttr(attr)
}

func optStringList(attrs hcl.Attributes, name string) ([]string, error) {
	attr, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	return stringListAttr(attr)
}
