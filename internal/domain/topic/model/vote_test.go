package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVote(t *testing.T) {
	base := []Vote{{Username: "binh", Value: 1}}

	t.Run("First vote is appended", func(t *testing.T) {
		got := ApplyVote(base, "an", 1)
		assert.Equal(t, []Vote{{"binh", 1}, {"an", 1}}, got)
		assert.Equal(t, 2, Score(got))
	})

	t.Run("Same value twice returns to no vote", func(t *testing.T) {
		once := ApplyVote(base, "an", 1)
		twice := ApplyVote(once, "an", 1)
		assert.Equal(t, 0, UserVote(twice, "an"))
		for _, v := range twice {
			assert.NotEqual(t, "an", v.Username)
		}
		assert.Equal(t, 1, Score(twice))
	})

	t.Run("Switching direction replaces the entry", func(t *testing.T) {
		up := ApplyVote(base, "an", 1)
		down := ApplyVote(up, "an", -1)

		count := 0
		for _, v := range down {
			if v.Username == "an" {
				count++
				assert.Equal(t, -1, v.Value)
			}
		}
		assert.Equal(t, 1, count)
		assert.Equal(t, 0, Score(down))
	})

	t.Run("Input is not mutated", func(t *testing.T) {
		votes := []Vote{{Username: "an", Value: 1}}
		_ = ApplyVote(votes, "an", -1)
		assert.Equal(t, 1, votes[0].Value)
	})
}

func TestCommentTree(t *testing.T) {
	tree := []Comment{
		{ID: "c1", Replies: []Comment{{ID: "c2"}}},
		{ID: "c3"},
	}

	t.Run("Update nested comment copies the path", func(t *testing.T) {
		next, ok := UpdateComment(tree, "c2", func(c Comment) Comment {
			c.Votes = ApplyVote(c.Votes, "an", 1)
			return c
		})
		require.True(t, ok)
		found, _ := FindComment(next, "c2")
		assert.Equal(t, 1, found.Score())
		original, _ := FindComment(tree, "c2")
		assert.Equal(t, 0, original.Score())
	})

	t.Run("Insert reply under parent", func(t *testing.T) {
		next := InsertComment(tree, "c2", Comment{ID: "p1", Pending: true})
		found, ok := FindComment(next, "p1")
		require.True(t, ok)
		assert.True(t, found.Pending)
		assert.Len(t, tree[0].Replies[0].Replies, 0)
	})

	t.Run("Insert with unknown parent becomes top level", func(t *testing.T) {
		next := InsertComment(tree, "missing", Comment{ID: "p2"})
		assert.Len(t, next, 3)
		assert.Len(t, tree, 2)
	})

	t.Run("Remove and replace", func(t *testing.T) {
		withPending := InsertComment(tree, "c1", Comment{ID: "p3"})
		replaced, ok := ReplaceComment(withPending, "p3", Comment{ID: "srv-9", Content: "hi"})
		require.True(t, ok)
		_, ok = FindComment(replaced, "srv-9")
		assert.True(t, ok)

		removed, ok := RemoveComment(withPending, "p3")
		require.True(t, ok)
		_, ok = FindComment(removed, "p3")
		assert.False(t, ok)
		assert.Len(t, removed[0].Replies, 1)
	})
}

func TestFeedMerge(t *testing.T) {
	f := Feed{}.Merge(1, []Topic{{ID: "1"}, {ID: "2"}}, true)
	f = f.Merge(2, []Topic{{ID: "2", Title: "updated"}, {ID: "3"}}, false)

	require.Len(t, f.Topics, 3)
	assert.Equal(t, "updated", f.Topics[1].Title)
	assert.Equal(t, 2, f.Page)
	assert.False(t, f.HasMore)

	refreshed := f.Merge(1, []Topic{{ID: "9"}}, true)
	assert.Len(t, refreshed.Topics, 1)

	updated := f.Update("3", func(t Topic) Topic { t.Saved = true; return t })
	got, _ := updated.Find("3")
	assert.True(t, got.Saved)
	orig, _ := f.Find("3")
	assert.False(t, orig.Saved)
}
