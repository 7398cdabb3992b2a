package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPluralizePoints(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "балл"},
		{21, "балл"},
		{101, "балл"},
		{2, "балла"},
		{3, "балла"},
		{4, "балла"},
		{22, "балла"},
		{0, "баллов"},
		{5, "баллов"},
		{11, "баллов"},
		{12, "баллов"},
		{14, "баллов"},
		{100, "баллов"},
		{-1, "балл"},
		{-5, "баллов"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, PluralizePoints(tc.n), "n=%d", tc.n)
	}
}

func TestFormatPoints(t *testing.T) {
	require.Equal(t, "150 баллов", FormatPoints(150))
	require.Equal(t, "1 балл", FormatPoints(1))
	require.Equal(t, "42 балла", FormatPoints(42))
}
