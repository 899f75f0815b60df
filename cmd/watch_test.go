package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/benchmark-cli/internal/category"
)

func state(name string, keys map[category.Dimension]category.Key) companyState {
	vals := make(category.Values, len(keys))
	for d, k := range keys {
		vals[d] = category.CategoryValue{Dimension: d, Key: k}
	}
	return companyState{Name: name, Categories: vals}
}

func TestDiffSnapshots(t *testing.T) {
	prev := map[int64]companyState{
		1: state("acme", map[category.Dimension]category.Key{
			category.DimInput:     category.KeyCompleted,
			category.DimWebSearch: category.KeyInQueue,
		}),
		2: state("globex", map[category.Dimension]category.Key{category.DimInput: category.KeyNew}),
	}
	next := map[int64]companyState{
		1: state("acme", map[category.Dimension]category.Key{
			category.DimInput:     category.KeyCompleted,
			category.DimWebSearch: category.KeyCompleted,
		}),
		3: state("initech", map[category.Dimension]category.Key{category.DimInput: category.KeyNew}),
	}

	changes := diffSnapshots(prev, next)
	require.Len(t, changes, 3)

	assert.Equal(t, categoryChange{CompanyID: 1, Name: "acme", Dimension: category.DimWebSearch, From: category.KeyInQueue, To: category.KeyCompleted}, changes[0])
	assert.Equal(t, categoryChange{CompanyID: 2, Name: "globex", Dimension: category.DimInput, From: category.KeyNew}, changes[1])
	assert.Equal(t, categoryChange{CompanyID: 3, Name: "initech", Dimension: category.DimInput, To: category.KeyNew}, changes[2])
}

func TestDiffSnapshots_NoChanges(t *testing.T) {
	snap := map[int64]companyState{
		1: state("acme", map[category.Dimension]category.Key{category.DimInput: category.KeyCompleted}),
	}
	assert.Empty(t, diffSnapshots(snap, snap))
}

func TestWriteChanges(t *testing.T) {
	var buf bytes.Buffer
	writeChanges(&buf, []categoryChange{
		{CompanyID: 7, Name: "acme", Dimension: category.DimAcceptReject, From: category.KeyInProgress, To: category.KeyAccepted},
		{CompanyID: 8, Name: "gone", Dimension: category.DimInput, From: category.KeyNew},
	})

	output := buf.String()
	assert.Contains(t, output, "7\tacme\tACCEPT_REJECT\tIN_PROGRESS -> ACCEPTED")
	assert.Contains(t, output, "8\tgone\tINPUT\tNEW -> -")
}
