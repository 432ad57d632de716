package output

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyJQ runs a jq expression against data. A single result is returned
// as-is; multiple results are collected into a slice.
func ApplyJQ(expr string, data any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, ErrUsageHint(fmt.Sprintf("Invalid --jq expression: %v", err), "See https://jqlang.org/manual/")
	}

	var results []any
	iter := query.Run(NormalizeData(data))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, ErrUsage(fmt.Sprintf("--jq evaluation failed: %v", err))
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}
