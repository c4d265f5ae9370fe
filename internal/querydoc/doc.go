// Package querydoc loads declarative query documents and replays them on
// a query.Builder.
//
// A document describes one builder session: data source, intervals,
// dimensions, aggregations, filters, having, ordering and the rest. It can
// be written in CUE, where a directory holds any number of documents
// under the "query" field:
//
//	query: top_pages: {
//		datasource: table: "wikipedia"
//		intervals: ["2024-01-01/2024-01-02"]
//		dimensions: [{column: "page"}]
//		aggregations: [{type: "count", name: "edits"}]
//		order_by: [{column: "edits", direction: "desc"}]
//		limit: 10
//	}
//
// or in YAML, one document per file, using the same field names.
package querydoc
