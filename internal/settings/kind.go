package settings

import "github.com/zclconf/go-cty/cty"

// Kind is the semantic type of a setting value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// KindOf classifies a cty value. Lists, tuples and sets are all lists; maps
// and objects are all maps. Null values and any other type are KindInvalid.
func KindOf(v cty.Value) Kind {
	if v.IsNull() {
		return KindInvalid
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		return KindNumber
	case ty.Equals(cty.String):
		return KindString
	case ty.Equals(cty.Bool):
		return KindBool
	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		return KindList
	case ty.IsMapType(), ty.IsObjectType():
		return KindMap
	default:
		return KindInvalid
	}
}
