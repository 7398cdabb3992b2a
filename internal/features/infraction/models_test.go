package infraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeLogTolerant(t *testing.T) {
	// Пустой журнал
	require.Nil(t, decodeLog(nil))
	require.Nil(t, decodeLog([]byte{}))

	// Испорченный JSON не валит операцию — журнал считается пустым
	require.Nil(t, decodeLog([]byte(`{"оборванный`)))
	require.Nil(t, decodeLog([]byte(`"не массив"`)))
}

func TestEncodeDecodeLog(t *testing.T) {
	entries := []LogEntry{
		{
			ActorID:    42,
			ActorName:  "@moder",
			Kind:       KindManual,
			PointDelta: 50,
			Note:       "спам",
			Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ActorName:  SystemActor.Name,
			Kind:       KindFilterHit,
			Word:       "казино",
			PointDelta: 25,
			Timestamp:  time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		},
	}

	decoded := decodeLog(encodeLog(entries))
	require.Len(t, decoded, 2)
	require.Equal(t, entries[0].Kind, decoded[0].Kind)
	require.Equal(t, entries[0].PointDelta, decoded[0].PointDelta)
	require.Equal(t, entries[1].Word, decoded[1].Word)
	// Порядок добавления сохраняется
	require.True(t, decoded[0].Timestamp.Before(decoded[1].Timestamp))
}

func TestEncodeLogNil(t *testing.T) {
	// nil-журнал сериализуется как пустой массив, не как null
	require.JSONEq(t, `[]`, string(encodeLog(nil)))
}
