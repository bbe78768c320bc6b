package typesystem

import (
	"fmt"
	"strings"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/names"
)

// Type is the interface for all cone types in the symbol graph.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TParam
	IsNullable() bool
}

// Variance of a type parameter or a type argument.
type Variance int

const (
	Invariant Variance = iota
	In
	Out
	Star
)

func (v Variance) String() string {
	switch v {
	case In:
		return "in"
	case Out:
		return "out"
	case Star:
		return "*"
	default:
		return ""
	}
}

// Projection is a type argument. A Star projection has a nil Type.
type Projection struct {
	Variance Variance
	Type     Type
}

func (p Projection) String() string {
	switch p.Variance {
	case Star:
		return "*"
	case In, Out:
		return p.Variance.String() + " " + typeString(p.Type)
	default:
		return typeString(p.Type)
	}
}

func Invariantly(t Type) Projection {
	return Projection{Variance: Invariant, Type: t}
}

var StarProjection = Projection{Variance: Star}

// TClass is a class type applied to arguments.
type TClass struct {
	ID       names.ClassID
	Args     []Projection
	Nullable bool
	Suspend  bool // marks suspend function types
}

func (t TClass) String() string {
	var sb strings.Builder
	if t.Suspend {
		sb.WriteString("suspend ")
	}
	sb.WriteString(t.ID.AsSingleFqName().String())
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	if t.Nullable {
		sb.WriteByte('?')
	}
	return sb.String()
}

func (t TClass) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, nil)
}

func (t TClass) FreeTypeVariables() []TParam {
	var out []TParam
	for _, a := range t.Args {
		if a.Type != nil {
			out = append(out, a.Type.FreeTypeVariables()...)
		}
	}
	return uniqueTParams(out)
}

func (t TClass) IsNullable() bool { return t.Nullable }

// TParam is a reference to a type parameter. Key is unique per owner, so two
// parameters named T on different declarations never collide.
type TParam struct {
	Name     names.Name
	Key      string
	Nullable bool
}

func (t TParam) String() string {
	if t.Nullable {
		return string(t.Name) + "?"
	}
	return string(t.Name)
}

func (t TParam) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, nil)
}

func (t TParam) FreeTypeVariables() []TParam {
	return []TParam{{Name: t.Name, Key: t.Key}}
}

func (t TParam) IsNullable() bool { return t.Nullable }

// TError stands in for a type that could not be resolved.
type TError struct {
	Reason string
}

func (t TError) String() string              { return fmt.Sprintf("<ERROR: %s>", t.Reason) }
func (t TError) Apply(Subst) Type            { return t }
func (t TError) FreeTypeVariables() []TParam { return nil }
func (t TError) IsNullable() bool            { return false }

// TDynamic is the dynamic type, compatible with everything.
type TDynamic struct{}

func (TDynamic) String() string              { return "dynamic" }
func (t TDynamic) Apply(Subst) Type          { return t }
func (TDynamic) FreeTypeVariables() []TParam { return nil }
func (TDynamic) IsNullable() bool            { return true }

// Subst maps type parameter keys to their replacements.
type Subst map[string]Type

// NewSubst pairs parameter keys with arguments. Star projections and
// missing arguments are left unmapped.
func NewSubst(keys []string, args []Projection) Subst {
	s := make(Subst, len(keys))
	for i, k := range keys {
		if i < len(args) && args[i].Type != nil {
			s[k] = args[i].Type
		}
	}
	return s
}

// Compose returns a substitution equivalent to applying s2 and then s1.
func (s1 Subst) Compose(s2 Subst) Subst {
	out := make(Subst, len(s1)+len(s2))
	for k, v := range s2 {
		out[k] = v.Apply(s1)
	}
	for k, v := range s1 {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// ApplyWithCycleCheck applies s to t, leaving a parameter untouched when its
// replacement refers back to it.
func ApplyWithCycleCheck(t Type, s Subst, visited map[string]bool) Type {
	if t == nil || len(s) == 0 {
		return t
	}
	switch typ := t.(type) {
	case TParam:
		if visited[typ.Key] {
			return typ
		}
		repl, ok := s[typ.Key]
		if !ok {
			return typ
		}
		if p, ok := repl.(TParam); ok && p.Key == typ.Key {
			return typ
		}
		next := make(map[string]bool, len(visited)+1)
		for k := range visited {
			next[k] = true
		}
		next[typ.Key] = true
		out := ApplyWithCycleCheck(repl, s, next)
		if typ.Nullable {
			out = WithNullability(out, true)
		}
		return out
	case TClass:
		if len(typ.Args) == 0 {
			return typ
		}
		args := make([]Projection, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = a
			if a.Type != nil {
				args[i].Type = ApplyWithCycleCheck(a.Type, s, visited)
			}
		}
		typ.Args = args
		return typ
	default:
		return t
	}
}

func typeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func uniqueTParams(ps []TParam) []TParam {
	if len(ps) < 2 {
		return ps
	}
	seen := make(map[string]bool, len(ps))
	out := ps[:0]
	for _, p := range ps {
		if !seen[p.Key] {
			seen[p.Key] = true
			out = append(out, p)
		}
	}
	return out
}

// Built-in class ids the type system knows about.
var (
	AnyID        = builtinID(config.BuiltinsPackage, config.AnyTypeName)
	NothingID    = builtinID(config.BuiltinsPackage, config.NothingTypeName)
	UnitID       = builtinID(config.BuiltinsPackage, config.UnitTypeName)
	BooleanID    = builtinID(config.BuiltinsPackage, config.BooleanTypeName)
	IntID        = builtinID(config.BuiltinsPackage, config.IntTypeName)
	LongID       = builtinID(config.BuiltinsPackage, config.LongTypeName)
	DoubleID     = builtinID(config.BuiltinsPackage, config.DoubleTypeName)
	CharID       = builtinID(config.BuiltinsPackage, config.CharTypeName)
	StringID     = builtinID(config.BuiltinsPackage, config.StringTypeName)
	EnumID       = builtinID(config.BuiltinsPackage, config.EnumTypeName)
	AnnotationID = builtinID(config.BuiltinsPackage, config.AnnotationTypeName)
)

func builtinID(pkg, name string) names.ClassID {
	return names.NewClassID(names.NewFqName(pkg), names.NewFqName(name), false)
}

// FunctionID returns the id of the FunctionN interface of the given arity.
func FunctionID(arity int) names.ClassID {
	return builtinID(config.BuiltinsPackage, fmt.Sprintf("%s%d", config.FunctionPrefix, arity))
}

// SuspendFunctionID returns the id of lang.coroutines.SuspendFunctionN.
func SuspendFunctionID(arity int) names.ClassID {
	return builtinID(config.CoroutinesPackage, fmt.Sprintf("%s%d", config.SuspendFunctionPrefix, arity))
}

// FunctionArity returns N for a lang/FunctionN id.
func FunctionArity(id names.ClassID) (int, bool) {
	if id.Package.String() != config.BuiltinsPackage || id.IsNested() {
		return 0, false
	}
	rest, ok := strings.CutPrefix(string(id.ShortName()), config.FunctionPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n := 0
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
