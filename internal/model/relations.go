package model

// CallRelationship is the adjacency entry of one caller.
type CallRelationship struct {
	Type    string   `json:"@type"`
	Caller  string   `json:"caller"`
	Callees []string `json:"callees"`
	// CallCount counts every call site, UniqueCallees the distinct targets.
	CallCount     int `json:"callCount"`
	UniqueCallees int `json:"uniqueCallees"`
}

// CallDetail is one call site.
type CallDetail struct {
	Caller         string `json:"caller"`
	Callee         string `json:"callee"`
	CalleeType     string `json:"calleeType"`
	Receiver       string `json:"receiver,omitempty"`
	Line           int    `json:"line"`
	ArgumentCount  int    `json:"argumentCount"`
	HasKeywordArgs bool   `json:"hasKeywordArgs"`
	Context        string `json:"context,omitempty"`
}

// FunctionDefinition lists a function known to the call graph.
type FunctionDefinition struct {
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualifiedName"`
	Class         string   `json:"class,omitempty"`
	Line          int      `json:"line"`
	Parameters    []string `json:"parameters"`
	IsAsync       bool     `json:"isAsync"`
}

// RankedName is a name with its count in a top-N ranking.
type RankedName struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CallPatterns holds the post-pass call graph analytics.
type CallPatterns struct {
	MostCalledFunctions  []RankedName   `json:"mostCalledFunctions"`
	MostCallingFunctions []RankedName   `json:"mostCallingFunctions"`
	RecursiveFunctions   []string       `json:"recursiveFunctions"`
	IsolatedFunctions    []string       `json:"isolatedFunctions"`
	UncalledFunctions    []string       `json:"uncalledFunctions"`
	CallDepth            map[string]int `json:"callDepth"`
}

// CallGraph is the call graph side channel of a File.
type CallGraph struct {
	Type                string               `json:"@type"`
	Relationships       []CallRelationship   `json:"relationships"`
	CallDetails         []CallDetail         `json:"callDetails"`
	Functions           []string             `json:"functions"`
	Classes             []string             `json:"classes"`
	FunctionDefinitions []FunctionDefinition `json:"functionDefinitions"`
	TotalRelationships  int                  `json:"totalRelationships"`
	CallPatterns        CallPatterns         `json:"callPatterns"`
	ExtractionStatus    Status               `json:"extractionStatus"`
	Error               string               `json:"error,omitempty"`
}

// Flow kinds.
const (
	FlowParameter           = "parameter_input"
	FlowAssignment          = "assignment"
	FlowAugmentedAssignment = "augmented_assignment"
	FlowReturn              = "return"
	FlowYield               = "yield"
)

// ModuleScope is the pseudo-function that owns statements outside any def.
const ModuleScope = "<module>"

// ValueSource describes where a value comes from. Type selects which of the
// remaining fields are set: variable, function_call, constant, list_literal,
// dict_literal, binary_operation, attribute_access, expression, or
// function_parameter for parameter inputs.
type ValueSource struct {
	Type          string         `json:"type"`
	Name          string         `json:"name,omitempty"`
	Context       string         `json:"context,omitempty"`
	Function      string         `json:"function,omitempty"`
	ArgumentCount *int           `json:"argumentCount,omitempty"`
	Value         string         `json:"value,omitempty"`
	ValueType     string         `json:"valueType,omitempty"`
	ElementCount  *int           `json:"elementCount,omitempty"`
	Elements      []*ValueSource `json:"elements,omitempty"`
	KeyCount      *int           `json:"keyCount,omitempty"`
	Operation     string         `json:"operation,omitempty"`
	Left          *ValueSource   `json:"left,omitempty"`
	Right         *ValueSource   `json:"right,omitempty"`
	Object        *ValueSource   `json:"object,omitempty"`
	Attribute     string         `json:"attribute,omitempty"`
	NodeType      string         `json:"nodeType,omitempty"`
}

// DataFlowEdge is one flow event inside a function.
type DataFlowEdge struct {
	Type         string       `json:"@type"`
	Function     string       `json:"function"`
	Variable     string       `json:"variable,omitempty"`
	FlowType     string       `json:"flowType"`
	Source       *ValueSource `json:"source"`
	Destination  string       `json:"destination,omitempty"`
	Operation    string       `json:"operation,omitempty"`
	Dependencies []string     `json:"dependencies,omitempty"`
	Line         int          `json:"line"`
}

// VariableInfo is the last known definition of a variable in a function.
type VariableInfo struct {
	Type     string       `json:"type"`
	Source   *ValueSource `json:"source"`
	Line     int          `json:"line"`
	DataType string       `json:"dataType,omitempty"`
}

// IOSummary pairs a function's inputs with its returned values.
type IOSummary struct {
	Inputs      []string       `json:"inputs"`
	Outputs     []*ValueSource `json:"outputs"`
	InputCount  int            `json:"inputCount"`
	OutputCount int            `json:"outputCount"`
}

// Transformer is a function with at least one call-derived local.
type Transformer struct {
	Function            string   `json:"function"`
	Variables           []string `json:"variables"`
	TransformationCount int      `json:"transformationCount"`
}

// ComplexDependency is a variable depending on more than two others.
type ComplexDependency struct {
	Function        string   `json:"function"`
	Variable        string   `json:"variable"`
	Dependencies    []string `json:"dependencies"`
	DependencyCount int      `json:"dependencyCount"`
}

// Lifecycle summarizes the writes of a variable.
type Lifecycle struct {
	FirstLine int      `json:"firstLine"`
	LastLine  int      `json:"lastLine"`
	Writes    int      `json:"writes"`
	Kinds     []string `json:"flowTypes"`
}

// FlowPatterns holds the post-pass data flow analytics.
type FlowPatterns struct {
	InputOutputFunctions map[string]IOSummary            `json:"inputOutputFunctions"`
	DataTransformers     []Transformer                   `json:"dataTransformers"`
	ComplexDependencies  []ComplexDependency             `json:"complexDependencies"`
	VariableLifecycles   map[string]map[string]Lifecycle `json:"variableLifecycles"`
}

// DataFlow is the data flow side channel of a File.
type DataFlow struct {
	Type              string                             `json:"@type"`
	Flows             []DataFlowEdge                     `json:"flows"`
	FunctionVariables map[string]map[string]VariableInfo `json:"functionVariables"`
	DataDependencies  map[string]map[string][]string     `json:"dataDependencies"`
	FlowPatterns      FlowPatterns                       `json:"flowPatterns"`
	TotalFlows        int                                `json:"totalFlows"`
	ExtractionStatus  Status                             `json:"extractionStatus"`
	Error             string                             `json:"error,omitempty"`
}
