package entity

import (
	"fmt"
	"strings"
)

// Kind tags a node of the type descriptor tree.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindID
	KindEntity
	KindList
	KindTuple
	KindUnion
	KindOptional
)

// Type describes the declared type of an entity field or of an endpoint's return value.
// Descriptors are built once, when schemas are registered, and are never mutated afterwards.
type Type struct {
	Kind Kind

	// Schema names the entity variant for KindEntity. An empty name means the generic,
	// untyped Entity.
	Schema string

	// Elem is the element type of KindList and the wrapped type of KindOptional.
	Elem *Type

	// Elems holds the per-position types of KindTuple and the candidates of KindUnion.
	Elems []*Type

	// Paginatable marks a KindList whose cast result is a *List that can carry cursors.
	Paginatable bool
}

var (
	anyType    = &Type{Kind: KindAny}
	stringType = &Type{Kind: KindString}
	intType    = &Type{Kind: KindInt}
	floatType  = &Type{Kind: KindFloat}
	boolType   = &Type{Kind: KindBool}
	timeType   = &Type{Kind: KindTime}
	idType     = &Type{Kind: KindID}
	genericRef = &Type{Kind: KindEntity}
)

func Any() *Type    { return anyType }
func String() *Type { return stringType }
func Int() *Type    { return intType }
func Float() *Type  { return floatType }
func Bool() *Type   { return boolType }
func Time() *Type   { return timeType }
func IDType() *Type { return idType }

// Generic is the type of the untyped Entity.
func Generic() *Type { return genericRef }

// Ref refers to a registered entity schema by name.
func Ref(schema string) *Type {
	if schema == "" {
		return genericRef
	}
	return &Type{Kind: KindEntity, Schema: schema}
}

// ListOf is an ordered sequence of elem that casts to []any.
func ListOf(elem *Type) *Type {
	return &Type{Kind: KindList, Elem: elem}
}

// PaginatableList is an ordered sequence of elem that casts to *List.
func PaginatableList(elem *Type) *Type {
	return &Type{Kind: KindList, Elem: elem, Paginatable: true}
}

// Tuple is a fixed-arity sequence with one type per position.
func Tuple(elems ...*Type) *Type {
	return &Type{Kind: KindTuple, Elems: elems}
}

// Union is tried candidate by candidate, in declaration order.
func Union(candidates ...*Type) *Type {
	return &Type{Kind: KindUnion, Elems: candidates}
}

// Optional accepts nil or a value of elem.
func Optional(elem *Type) *Type {
	return &Type{Kind: KindOptional, Elem: elem}
}

var kindNames = map[Kind]string{
	KindAny:    "Any",
	KindString: "String",
	KindInt:    "Int",
	KindFloat:  "Float",
	KindBool:   "Bool",
	KindTime:   "Time",
	KindID:     "ID",
}

// String renders the descriptor in the notation accepted by ParseType, e.g.
// "PaginatableList[Status]" or "Union[Status,Entity]".
func (t *Type) String() string {
	if t == nil {
		return "Any"
	}
	switch t.Kind {
	case KindEntity:
		if t.Schema == "" {
			return "Entity"
		}
		return t.Schema
	case KindList:
		name := "List"
		if t.Paginatable {
			name = "PaginatableList"
		}
		return name + "[" + t.Elem.String() + "]"
	case KindOptional:
		return "Optional[" + t.Elem.String() + "]"
	case KindTuple, KindUnion:
		name := "Tuple"
		if t.Kind == KindUnion {
			name = "Union"
		}
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return name + "[" + strings.Join(parts, ",") + "]"
	default:
		return kindNames[t.Kind]
	}
}

// ParseType parses the notation produced by Type.String. Names that are not primitives or
// generic constructors are taken as entity schema references.
func ParseType(s string) (*Type, error) {
	p := &typeParser{src: strings.ReplaceAll(s, " ", "")}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected trailing input %q in type %q", p.src[p.pos:], s)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parse() (*Type, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '[' && p.src[p.pos] != ']' && p.src[p.pos] != ',' {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil, fmt.Errorf("missing type name at offset %d in %q", start, p.src)
	}

	var args []*Type
	if p.pos < len(p.src) && p.src[p.pos] == '[' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("unterminated type arguments in %q", p.src)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] != ']' {
				return nil, fmt.Errorf("unexpected %q at offset %d in %q", p.src[p.pos], p.pos, p.src)
			}
			p.pos++
			break
		}
	}

	switch name {
	case "List", "PaginatableList", "Optional":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes exactly one type argument, got %d", name, len(args))
		}
		switch name {
		case "List":
			return ListOf(args[0]), nil
		case "PaginatableList":
			return PaginatableList(args[0]), nil
		default:
			return Optional(args[0]), nil
		}
	case "Tuple":
		return Tuple(args...), nil
	case "Union":
		return Union(args...), nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("type %s does not take arguments", name)
	}
	for kind, kn := range kindNames {
		if kn == name {
			return &Type{Kind: kind}, nil
		}
	}
	if name == "Entity" {
		return Generic(), nil
	}
	return Ref(name), nil
}
