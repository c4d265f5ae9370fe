package querydoc

// Document is one declarative query.
type Document struct {
	// Name identifies the document. CUE documents take their label.
	Name string `json:"name,omitempty" yaml:"name"`

	// Shape forces a query shape. Empty lets the resolver choose.
	Shape string `json:"shape,omitempty" yaml:"shape"`

	DataSource DataSource `json:"datasource" yaml:"datasource"`

	// Intervals use Druid's "start/stop" notation.
	Intervals   []string `json:"intervals" yaml:"intervals"`
	Granularity string   `json:"granularity,omitempty" yaml:"granularity"`

	Dimensions       []Dimension       `json:"dimensions,omitempty" yaml:"dimensions"`
	VirtualColumns   []VirtualColumn   `json:"virtual_columns,omitempty" yaml:"virtual_columns"`
	Aggregations     []Aggregation     `json:"aggregations,omitempty" yaml:"aggregations"`
	PostAggregations []PostAggregation `json:"post_aggregations,omitempty" yaml:"post_aggregations"`

	Where  []Condition `json:"where,omitempty" yaml:"where"`
	Having []Condition `json:"having,omitempty" yaml:"having"`

	OrderBy []Order `json:"order_by,omitempty" yaml:"order_by"`
	Limit   int     `json:"limit,omitempty" yaml:"limit"`
	Offset  int     `json:"offset,omitempty" yaml:"offset"`

	// Descending orders results by time, newest first.
	Descending bool `json:"descending,omitempty" yaml:"descending"`

	Context   map[string]any `json:"context,omitempty" yaml:"context"`
	Subtotals [][]string     `json:"subtotals,omitempty" yaml:"subtotals"`

	Select *SelectOptions `json:"select,omitempty" yaml:"select"`
	Search *SearchOptions `json:"search,omitempty" yaml:"search"`
	Scan   *ScanOptions   `json:"scan,omitempty" yaml:"scan"`
}

// DataSource names exactly one kind of source.
type DataSource struct {
	Table  string        `json:"table,omitempty" yaml:"table"`
	Lookup string        `json:"lookup,omitempty" yaml:"lookup"`
	Union  []string      `json:"union,omitempty" yaml:"union"`
	Inline *InlineSource `json:"inline,omitempty" yaml:"inline"`
}

// InlineSource is a literal table.
type InlineSource struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

type Dimension struct {
	Column     string `json:"column" yaml:"column"`
	Alias      string `json:"alias,omitempty" yaml:"alias"`
	Type       string `json:"type,omitempty" yaml:"type"`
	Extraction []Step `json:"extraction,omitempty" yaml:"extraction"`
}

type VirtualColumn struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
	Type       string `json:"type,omitempty" yaml:"type"`
}

// Step is one extraction function. Type selects which of the other
// fields apply; they carry Druid's names.
type Step struct {
	Type string `json:"type" yaml:"type"`

	Index  int `json:"index,omitempty" yaml:"index"`
	Length int `json:"length,omitempty" yaml:"length"`

	Locale       string `json:"locale,omitempty" yaml:"locale"`
	Format       string `json:"format,omitempty" yaml:"format"`
	NullHandling string `json:"null_handling,omitempty" yaml:"null_handling"`

	Expr                    string `json:"expr,omitempty" yaml:"expr"`
	ReplaceMissingValue     bool   `json:"replace_missing_value,omitempty" yaml:"replace_missing_value"`
	ReplaceMissingValueWith string `json:"replace_missing_value_with,omitempty" yaml:"replace_missing_value_with"`
	RetainMissingValue      bool   `json:"retain_missing_value,omitempty" yaml:"retain_missing_value"`

	Value         string `json:"value,omitempty" yaml:"value"`
	CaseSensitive bool   `json:"case_sensitive,omitempty" yaml:"case_sensitive"`

	Size   float64 `json:"size,omitempty" yaml:"size"`
	Offset float64 `json:"offset,omitempty" yaml:"offset"`

	Function  string `json:"function,omitempty" yaml:"function"`
	Injective bool   `json:"injective,omitempty" yaml:"injective"`

	Lookup string            `json:"lookup,omitempty" yaml:"lookup"`
	Map    map[string]string `json:"map,omitempty" yaml:"map"`

	TimeZone     string `json:"time_zone,omitempty" yaml:"time_zone"`
	Granularity  string `json:"granularity,omitempty" yaml:"granularity"`
	AsMillis     bool   `json:"as_millis,omitempty" yaml:"as_millis"`
	TimeFormat   string `json:"time_format,omitempty" yaml:"time_format"`
	ResultFormat string `json:"result_format,omitempty" yaml:"result_format"`
	Joda         bool   `json:"joda,omitempty" yaml:"joda"`
}

// Aggregation uses Druid aggregator type names: "count", "longSum",
// "doubleMax", "cardinality", "hyperUnique" and so on.
type Aggregation struct {
	Type   string   `json:"type" yaml:"type"`
	Name   string   `json:"name" yaml:"name"`
	Field  string   `json:"field,omitempty" yaml:"field"`
	Fields []string `json:"fields,omitempty" yaml:"fields"`
	ByRow  bool     `json:"by_row,omitempty" yaml:"by_row"`
	Round  bool     `json:"round,omitempty" yaml:"round"`

	// Filter restricts the rows the aggregator sees.
	Filter []Condition `json:"filter,omitempty" yaml:"filter"`
}

// PostAggregation types: arithmetic, fieldAccess, finalizingFieldAccess,
// constant, hyperUniqueCardinality, expression, greatest, least.
type PostAggregation struct {
	Type       string            `json:"type" yaml:"type"`
	Name       string            `json:"name,omitempty" yaml:"name"`
	Fn         string            `json:"fn,omitempty" yaml:"fn"`
	Fields     []PostAggregation `json:"fields,omitempty" yaml:"fields"`
	Field      string            `json:"field,omitempty" yaml:"field"`
	Value      float64           `json:"value,omitempty" yaml:"value"`
	Expression string            `json:"expression,omitempty" yaml:"expression"`
	Ordering   string            `json:"ordering,omitempty" yaml:"ordering"`
	ValueType  string            `json:"value_type,omitempty" yaml:"value_type"`
}

// Condition is a filter or having clause. Either Column/Op/Value or
// Group is set. Or joins the clause with "or" instead of "and"; Not
// negates it.
type Condition struct {
	Column     string      `json:"column,omitempty" yaml:"column"`
	Op         string      `json:"op,omitempty" yaml:"op"`
	Value      any         `json:"value,omitempty" yaml:"value"`
	Extraction []Step      `json:"extraction,omitempty" yaml:"extraction"`
	Group      []Condition `json:"group,omitempty" yaml:"group"`
	Or         bool        `json:"or,omitempty" yaml:"or"`
	Not        bool        `json:"not,omitempty" yaml:"not"`
}

type Order struct {
	Column    string `json:"column" yaml:"column"`
	Direction string `json:"direction,omitempty" yaml:"direction"`
	Collation string `json:"collation,omitempty" yaml:"collation"`
}

// SelectOptions make the query a paged select.
type SelectOptions struct {
	Paging  map[string]int `json:"paging,omitempty" yaml:"paging"`
	Metrics []string       `json:"metrics,omitempty" yaml:"metrics"`
}

// SearchOptions set one of Contains, Fragments or Regex.
type SearchOptions struct {
	Contains      string   `json:"contains,omitempty" yaml:"contains"`
	Fragments     []string `json:"fragments,omitempty" yaml:"fragments"`
	Regex         string   `json:"regex,omitempty" yaml:"regex"`
	CaseSensitive bool     `json:"case_sensitive,omitempty" yaml:"case_sensitive"`
	Sort          string   `json:"sort,omitempty" yaml:"sort"`
}

type ScanOptions struct {
	ResultFormat string `json:"result_format,omitempty" yaml:"result_format"`
	BatchSize    int    `json:"batch_size,omitempty" yaml:"batch_size"`
	Legacy       bool   `json:"legacy,omitempty" yaml:"legacy"`
}
