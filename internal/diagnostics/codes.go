package diagnostics

// ErrorCode identifies a diagnostic kind. The letter prefix names the
// component that reports it.
type ErrorCode string

// Metadata (deserialization) errors.
const (
	ErrM001 ErrorCode = "M001" // malformed metadata record
	ErrM002 ErrorCode = "M002" // incompatible metadata or ABI version
	ErrM003 ErrorCode = "M003" // unresolved supertype, incomplete hierarchy
	ErrM004 ErrorCode = "M004" // cyclic supertypes in deserialized classes
	ErrM005 ErrorCode = "M005" // required built-in declaration is missing
	ErrM006 ErrorCode = "M006" // unreadable metadata file
)

// Resolution errors.
const (
	ErrR001 ErrorCode = "R001" // redeclaration
	ErrR002 ErrorCode = "R002" // cyclic inheritance
	ErrR003 ErrorCode = "R003" // unresolved type reference
	ErrR004 ErrorCode = "R004" // unresolved reference in a body
	ErrR005 ErrorCode = "R005" // final or invalid supertype
	ErrR006 ErrorCode = "R006" // more than one class in supertypes
	ErrR007 ErrorCode = "R007" // unreachable code
	ErrR008 ErrorCode = "R008" // wrong number of type arguments
)

// Override and inheritance errors.
const (
	ErrO001 ErrorCode = "O001" // conflicting inherited implementations
	ErrO002 ErrorCode = "O002" // cannot infer visibility of inherited member
	ErrO003 ErrorCode = "O003" // abstract member not implemented
	ErrO004 ErrorCode = "O004" // abstract member in non-abstract class
	ErrO005 ErrorCode = "O005" // incompatible override (return type mismatch)
	ErrO006 ErrorCode = "O006" // overriding a final member
	ErrO007 ErrorCode = "O007" // 'override' overrides nothing
	ErrO008 ErrorCode = "O008" // member hides a supertype member without 'override'
)

// Source file errors.
const (
	ErrP001 ErrorCode = "P001" // malformed declaration file
	ErrP002 ErrorCode = "P002" // syntax error in a type or expression
)

// Structural errors. These indicate broken invariants in the core itself.
const (
	ErrS001 ErrorCode = "S001"
	ErrS002 ErrorCode = "S002" // fatal input condition, aborts the module load
)

var codeTitles = map[ErrorCode]string{
	ErrM001: "malformed metadata",
	ErrM002: "incompatible metadata",
	ErrM003: "incomplete hierarchy",
	ErrM004: "cyclic hierarchy in metadata",
	ErrM005: "missing built-in",
	ErrM006: "unreadable metadata",
	ErrR001: "redeclaration",
	ErrR002: "cyclic inheritance",
	ErrR003: "unresolved type",
	ErrR004: "unresolved reference",
	ErrR005: "invalid supertype",
	ErrR006: "many classes in supertypes",
	ErrR007: "unreachable code",
	ErrR008: "wrong number of type arguments",
	ErrO001: "conflicting inherited members",
	ErrO002: "cannot infer visibility",
	ErrO003: "abstract member not implemented",
	ErrO004: "abstract member in non-abstract class",
	ErrO005: "incompatible override",
	ErrO006: "overriding final member",
	ErrO007: "nothing to override",
	ErrO008: "virtual member hidden",
	ErrP001: "malformed declaration file",
	ErrP002: "syntax error",
	ErrS001: "invariant violation",
	ErrS002: "fatal",
}

// Title returns a short human readable name of the code.
func (c ErrorCode) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return string(c)
}
