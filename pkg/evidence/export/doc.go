// Package export writes evidence records as JSON or CSV.
//
// The JSON exporter always writes an array, indented when Pretty is set.
// The CSV exporter flattens a record into one row; the attempt history goes
// into a single column as a JSON array.
//
//	exp, ok := export.ForFormat("csv", false)
//	if !ok {
//	    return fmt.Errorf("unknown format")
//	}
//	err := exp.Export(ctx, records, os.Stdout)
//
// The retention pruner uses the JSON exporter to archive records before
// deleting them, and "llmproxy audit export" uses both.
package export
