package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultLeaderboardLimit},
		{"negative", -5, DefaultLeaderboardLimit},
		{"explicit", 25, 25},
		{"capped", 1000, MaxLeaderboardLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeLeaderboardRepo{}
			_, err := NewLeaderboardService(repo).Top(context.Background(), tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.gotLimit)
		})
	}
}
