package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cases := []struct {
		text     string
		wantCmd  string
		wantArgs []string
		wantOK   bool
	}{
		{"/view 123", "view", []string{"123"}, true},
		{"!infraction 123 50 спам в чате", "infraction", []string{"123", "50", "спам", "в", "чате"}, true},
		{".ban", "ban", nil, true},
		{"/VIEW 123", "view", []string{"123"}, true},
		{"  /view  123  ", "view", []string{"123"}, true},
		// Адресная форма в группах
		{"/view@moderation_bot 123", "view", []string{"123"}, true},
		// Не команды
		{"просто сообщение", "", nil, false},
		{"", "", nil, false},
		{"/", "", nil, false},
		{"!   ", "", nil, false},
	}

	for _, tc := range cases {
		cmd, args, ok := p.ParseCommand(tc.text)
		require.Equal(t, tc.wantOK, ok, "text=%q", tc.text)
		require.Equal(t, tc.wantCmd, cmd, "text=%q", tc.text)
		if len(tc.wantArgs) > 0 {
			require.Equal(t, tc.wantArgs, args, "text=%q", tc.text)
		} else {
			require.Empty(t, args, "text=%q", tc.text)
		}
	}
}
