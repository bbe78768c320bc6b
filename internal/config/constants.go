package config

// Project file names searched by FindProject, in order.
var ProjectFileNames = []string{"semcore.yaml", "semcore.yml", "semcore.toml"}

// MetadataFileExt is the extension of serialized metadata streams.
const MetadataFileExt = ".smd"

// SourceFileExt is the extension of declaration files consumed by the loader.
const SourceFileExt = ".decl.yaml"

// Built-in packages
const (
	BuiltinsPackage   = "lang"
	CoroutinesPackage = "lang.coroutines"
	BuiltinsModule    = "<builtins>"
)

// Built-in classifier names
const (
	AnyTypeName           = "Any"
	NothingTypeName       = "Nothing"
	UnitTypeName          = "Unit"
	BooleanTypeName       = "Boolean"
	IntTypeName           = "Int"
	LongTypeName          = "Long"
	DoubleTypeName        = "Double"
	CharTypeName          = "Char"
	StringTypeName        = "String"
	EnumTypeName          = "Enum"
	AnnotationTypeName    = "Annotation"
	ComparableTypeName    = "Comparable"
	ArrayTypeName         = "Array"
	FunctionPrefix        = "Function"
	SuspendFunctionPrefix = "SuspendFunction"
	ContinuationTypeName  = "Continuation"
)

// Built-in member names
const (
	EqualsFuncName    = "equals"
	HashCodeFuncName  = "hashCode"
	ToStringFuncName  = "toString"
	InvokeFuncName    = "invoke"
	CompareToFuncName = "compareTo"
	NamePropName      = "name"
	OrdinalPropName   = "ordinal"
	ValuesFuncName    = "values"
	ValueOfFuncName   = "valueOf"
	ResumeFuncName    = "resumeWith"
)

// MaxFunctionArity bounds the generated FunctionN and SuspendFunctionN
// interfaces.
const MaxFunctionArity = 22

// Defaults applied to project files.
const (
	DefaultWorkers  = 4
	DefaultLogLevel = "info"
	DefaultPlatform = "common"
	DefaultSource   = "main"
)
