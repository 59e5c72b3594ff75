package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveAttribution(t *testing.T) {
	asOf := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	tests := []struct {
		name   string
		clicks []Click
		want   string
	}{
		{
			name: "no clicks",
			want: "",
		},
		{
			name: "latest click wins",
			clicks: []Click{
				{ClickID: "a", Seq: 1, LinkID: "L1", ClickedAt: asOf.Add(-48 * time.Hour)},
				{ClickID: "b", Seq: 2, LinkID: "L1", ClickedAt: asOf.Add(-time.Hour)},
				{ClickID: "c", Seq: 3, LinkID: "L1", ClickedAt: asOf.Add(-24 * time.Hour)},
			},
			want: "b",
		},
		{
			name: "equal timestamps use insertion order",
			clicks: []Click{
				{ClickID: "first", Seq: 10, LinkID: "L1", ClickedAt: asOf.Add(-time.Minute)},
				{ClickID: "second", Seq: 11, LinkID: "L1", ClickedAt: asOf.Add(-time.Minute)},
			},
			want: "second",
		},
		{
			name: "window start is inclusive",
			clicks: []Click{
				{ClickID: "edge", Seq: 1, LinkID: "L1", ClickedAt: asOf.Add(-window)},
			},
			want: "edge",
		},
		{
			name: "just outside the window",
			clicks: []Click{
				{ClickID: "old", Seq: 1, LinkID: "L1", ClickedAt: asOf.Add(-window - time.Nanosecond)},
			},
			want: "",
		},
		{
			name: "asOf is inclusive and the future is excluded",
			clicks: []Click{
				{ClickID: "now", Seq: 1, LinkID: "L1", ClickedAt: asOf},
				{ClickID: "future", Seq: 2, LinkID: "L1", ClickedAt: asOf.Add(time.Second)},
			},
			want: "now",
		},
		{
			name: "other links ignored",
			clicks: []Click{
				{ClickID: "mine", Seq: 1, LinkID: "L1", ClickedAt: asOf.Add(-2 * time.Hour)},
				{ClickID: "theirs", Seq: 2, LinkID: "L2", ClickedAt: asOf.Add(-time.Hour)},
			},
			want: "mine",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveAttribution(tc.clicks, "L1", window, asOf)
			if tc.want == "" {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			require.Equal(t, tc.want, got.ClickID)
		})
	}
}
