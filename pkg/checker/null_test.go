package checker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/outcome"
)

func TestNullCheckerOnline(t *testing.T) {
	n := NewNullChecker()

	var got *outcome.Outcome[bool]
	err := n.Online(context.Background(), &testEntity{id: "e1", verified: true}, func(o outcome.Outcome[bool]) {
		got = &o
	})
	require.NoError(t, err)
	require.NotNil(t, got, "callback must be invoked")

	online, err := got.Get()
	require.NoError(t, err)
	assert.True(t, online, "null checker reports everything online")
}

func TestNullCheckerUnverified(t *testing.T) {
	n := NewNullChecker()

	err := n.Online(context.Background(), &testEntity{id: "e1", verified: false}, func(outcome.Outcome[bool]) {
		t.Error("callback must not fire for unverified entity")
	})

	var notVerified *NotVerifiedError
	assert.ErrorAs(t, err, &notVerified)
}

func TestNullRetriever(t *testing.T) {
	n := NewNullChecker()

	t.Run("single retrieve succeeds", func(t *testing.T) {
		called := false
		err := n.Retrieve(context.Background(), &testEntity{id: "e1", verified: true}, func(o outcome.Outcome[bool]) {
			called = true
			assert.True(t, o.IsSuccess())
		})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("batch retrieve covers every entity", func(t *testing.T) {
		entities := []Entity{
			&testEntity{id: "a", verified: true},
			&testEntity{id: "b", verified: true},
		}

		var results []RetrieveResult
		err := n.RetrieveBatch(context.Background(), entities, func(rs []RetrieveResult) {
			results = rs
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.True(t, r.Result.IsSuccess())
		}
	})
}
