// Package harness runs query scenarios: a query document plus the
// expectations its built request must meet.
//
// # Scenario Format
//
//	name: top_pages
//	description: "A ranked single dimension becomes a topN"
//	query:
//	  datasource: { table: wikipedia }
//	  intervals: ["2024-01-01/2024-01-02"]
//	  dimensions: [{ column: page }]
//	  aggregations: [{ type: count, name: edits }]
//	  order_by: [{ column: edits, direction: desc }]
//	  limit: 10
//	expect:
//	  shape: topN
//	  present: [threshold, metric]
//	  absent: [having]
//	  equals:
//	    threshold: 10
//	golden: true
//
// A scenario expecting a failure names the configuration error code
// instead:
//
//	expect:
//	  error: NO_INTERVALS
//
// # Assertions
//
//   - shape: the resolved (or forced) query shape
//   - present / absent: dotted key paths into the request, with numeric
//     segments indexing arrays ("aggregations.0.type")
//   - equals: path to expected value, compared as canonical JSON
//   - error: a query.ErrorCode the build must report
//
// With golden set, RunWithGolden also compares the canonical request
// against testdata/golden/<name>.golden.
package harness
