package infraction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"serotonyl.ru/moderation-bot/internal/common"
)

// fakeStore — in-memory замена Repository. Воспроизводит транзакционную
// семантику UpdateTx: колбэк работает с копией, ошибка колбэка откатывает
// изменения, конкурентные обновления сериализуются.
type fakeStore struct {
	mu      sync.Mutex
	records map[Key]*Record
	// Ошибки по конкретным ключам для проверки устойчивости скана
	failKeys map[Key]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[Key]*Record),
		failKeys: make(map[Key]error),
	}
}

func cloneRecord(rec *Record) Record {
	out := *rec
	out.Log = append([]LogEntry(nil), rec.Log...)
	return out
}

func (f *fakeStore) Get(_ context.Context, chatID, userID int64) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[Key{ChatID: chatID, UserID: userID}]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (f *fakeStore) UpdateTx(_ context.Context, chatID, userID int64, fn func(rec *Record) error) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := Key{ChatID: chatID, UserID: userID}
	if err, ok := f.failKeys[key]; ok {
		return nil, err
	}

	var work Record
	if cur, ok := f.records[key]; ok {
		work = cloneRecord(cur)
	} else {
		work = Record{ChatID: chatID, UserID: userID, Status: TierActive, CreatedAt: time.Now()}
	}

	if err := fn(&work); err != nil {
		// откат: запись остаётся как была (или не создаётся)
		return nil, err
	}

	work.UpdatedAt = time.Now()
	stored := cloneRecord(&work)
	f.records[key] = &stored
	out := cloneRecord(&stored)
	return &out, nil
}

func (f *fakeStore) ScanPositive(_ context.Context) ([]Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []Key
	for k, rec := range f.records {
		if rec.Points > 0 {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) UpdateNotes(_ context.Context, chatID, userID int64, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[Key{ChatID: chatID, UserID: userID}]
	if !ok {
		return common.ErrRecordNotFound
	}
	rec.Notes = notes
	return nil
}

// fakeDirectory — замена Telegram-адаптера для бана.
type fakeDirectory struct {
	mu       sync.Mutex
	banned   map[int64]bool
	banCalls int
	unbans   int
	banErr   error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{banned: make(map[int64]bool)}
}

func (f *fakeDirectory) IsBanned(_ context.Context, _, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banned[userID], nil
}

func (f *fakeDirectory) Ban(_ context.Context, _, userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banCalls++
	if f.banErr != nil {
		return f.banErr
	}
	f.banned[userID] = true
	return nil
}

func (f *fakeDirectory) Unban(_ context.Context, _, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbans++
	delete(f.banned, userID)
	return nil
}

// fakeMessenger — замена доставки личных сообщений.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMessenger) SendDM(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestService() (*Service, *fakeStore, *fakeDirectory, *fakeMessenger) {
	store := newFakeStore()
	dir := newFakeDirectory()
	msg := &fakeMessenger{}
	svc := NewService(store, dir, msg, DefaultPolicy())
	return svc, store, dir, msg
}

var testActor = Actor{ID: 7, Name: "@moder"}

const (
	testChat int64 = -100
	testUser int64 = 555
)

func TestApplyManualCreatesRecord(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 50, "спам")
	require.NoError(t, err)
	require.Equal(t, 50, rec.Points)
	require.Equal(t, TierActive, rec.Status)
	require.Len(t, rec.Log, 1)
	require.Equal(t, KindManual, rec.Log[0].Kind)
	require.Equal(t, testActor.ID, rec.Log[0].ActorID)
	require.Equal(t, 50, rec.Log[0].PointDelta)

	// Запись действительно материализована
	stored, err := store.Get(ctx, testChat, testUser)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, 50, stored.Points)
}

func TestPointsClampAtZero(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 30, "")
	require.NoError(t, err)

	rec, err := svc.ApplyManual(ctx, testChat, testUser, testActor, -100, "амнистия")
	require.NoError(t, err)
	require.Equal(t, 0, rec.Points)
	// В журнале фактическая дельта, с учётом отсечки
	require.Equal(t, -30, rec.Log[1].PointDelta)
}

func TestGetRecordDefaultNotPersisted(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Equal(t, 0, rec.Points)
	require.Equal(t, TierActive, rec.Status)
	require.Empty(t, rec.Log)

	// Чтение не создаёт запись в хранилище
	stored, err := store.Get(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestWarningSentOncePerTier(t *testing.T) {
	svc, _, _, msg := newTestService()
	ctx := context.Background()

	// Переход active -> flagged: одно предупреждение
	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 300, "")
	require.NoError(t, err)
	require.Equal(t, 1, msg.sentCount())

	// Рост внутри статуса — без повторного предупреждения
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, 50, "")
	require.NoError(t, err)
	require.Equal(t, 1, msg.sentCount())

	// Опустился ниже порога и снова поднялся: статус снова вырос,
	// но о flagged уже предупреждали — молчим
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, -60, "")
	require.NoError(t, err)
	rec, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 20, "")
	require.NoError(t, err)
	require.Equal(t, TierFlagged, rec.Status)
	require.Equal(t, 1, msg.sentCount())

	// Следующий статус — новое предупреждение
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, 200, "")
	require.NoError(t, err)
	require.Equal(t, 2, msg.sentCount())
}

func TestWarningDeliveryFailureAdvancesMarker(t *testing.T) {
	svc, _, _, msg := newTestService()
	ctx := context.Background()

	// Личка закрыта — доставка падает
	msg.err = errors.New("пользователь заблокировал бота")
	rec, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 300, "")
	require.NoError(t, err)
	require.Equal(t, 0, msg.sentCount())
	// Маркер двигается даже при неудачной доставке
	require.Equal(t, TierFlagged, rec.LastNotifiedTier)

	// Доставка починилась, но повторного предупреждения о flagged нет
	msg.err = nil
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, 10, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, -20, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, 15, "")
	require.NoError(t, err)
	require.Equal(t, 0, msg.sentCount())
}

func TestAutoBanAtThreshold(t *testing.T) {
	svc, _, dir, msg := newTestService()
	ctx := context.Background()

	rec, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 1000, "")
	require.NoError(t, err)
	require.Equal(t, TierBanned, rec.Status)
	require.Equal(t, 1, dir.banCalls)
	require.True(t, dir.banned[testUser])
	require.Equal(t, 1, msg.sentCount())

	// Журнал: нарушение + запись о бане
	require.Len(t, rec.Log, 2)
	require.Equal(t, KindExclusion, rec.Log[1].Kind)
	require.Equal(t, svc.Policy().BanReason(), rec.Log[1].Note)
}

func TestBanEnforcedOnce(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 1000, "")
	require.NoError(t, err)
	require.Equal(t, 1, dir.banCalls)

	// Дальнейший рост баллов не перезапускает бан
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, 50, "")
	require.NoError(t, err)
	require.Equal(t, 1, dir.banCalls)
}

func TestBanIsOneWayLatch(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 1000, "")
	require.NoError(t, err)

	// Затухание уводит баллы ниже порога, но статус не смягчается
	sum, err := svc.DecaySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Decayed)

	rec, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Equal(t, 990, rec.Points)
	require.Equal(t, TierBanned, rec.Status)
}

func TestDecaySkipsZeroRecord(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	// Запись существует, но баллы уже нулевые
	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 10, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, -10, "")
	require.NoError(t, err)

	before, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)

	// Путь затухания: нулевая запись не трогается вовсе
	entry := LogEntry{ActorName: SystemActor.Name, Kind: KindDecay, Timestamp: time.Now()}
	_, err = svc.applyDelta(ctx, testChat, testUser, -svc.policy.DecayAmount, entry, true)
	require.ErrorIs(t, err, errNoChange)

	after, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Len(t, after.Log, len(before.Log), "журнал не должен расти при пропуске")
}

func TestDecaySweep(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	// Три пользователя: 25 баллов, 5 баллов и 0 (запись есть)
	_, err := svc.ApplyManual(ctx, testChat, 1, testActor, 25, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, 2, testActor, 5, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, 3, testActor, 10, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, 3, testActor, -10, "")
	require.NoError(t, err)

	sum, err := svc.DecaySweep(ctx)
	require.NoError(t, err)
	// Нулевая запись не попадает в скан
	require.Equal(t, 2, sum.Scanned)
	require.Equal(t, 2, sum.Decayed)
	require.Equal(t, 0, sum.Failed)

	rec1, err := svc.GetRecord(ctx, testChat, 1)
	require.NoError(t, err)
	require.Equal(t, 15, rec1.Points)

	// 5 баллов затухают до нуля, дельта в журнале фактическая
	rec2, err := svc.GetRecord(ctx, testChat, 2)
	require.NoError(t, err)
	require.Equal(t, 0, rec2.Points)
	last := rec2.Log[len(rec2.Log)-1]
	require.Equal(t, KindDecay, last.Kind)
	require.Equal(t, -5, last.PointDelta)
}

func TestDecayDrainsToZero(t *testing.T) {
	svc, _, _, msg := newTestService()
	ctx := context.Background()

	// 350 баллов — статус flagged, одно предупреждение
	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 350, "")
	require.NoError(t, err)
	require.Equal(t, 1, msg.sentCount())

	// 35 тиков по 10 баллов выводят в ноль
	for i := 0; i < 35; i++ {
		_, err := svc.DecaySweep(ctx)
		require.NoError(t, err)
	}

	rec, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Equal(t, 0, rec.Points)
	// Статус смягчается вместе с баллами (бан — единственная защёлка)
	require.Equal(t, TierActive, rec.Status)
	// Затухание не шлёт предупреждений
	require.Equal(t, 1, msg.sentCount())

	// Дальше скан пустой — журнал больше не растёт
	sum, err := svc.DecaySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, sum.Scanned)
}

func TestDecaySweepContinuesOnError(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, 1, testActor, 30, "")
	require.NoError(t, err)
	_, err = svc.ApplyManual(ctx, testChat, 2, testActor, 30, "")
	require.NoError(t, err)

	store.failKeys[Key{ChatID: testChat, UserID: 1}] = errors.New("обрыв связи")

	sum, err := svc.DecaySweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Scanned)
	require.Equal(t, 1, sum.Decayed)
	require.Equal(t, 1, sum.Failed)
}

func TestDecaySweepStopsOnCancel(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.ApplyManual(context.Background(), testChat, testUser, testActor, 30, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.DecaySweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentApplies(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, delta := range []int{50, 70} {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, d, "")
			require.NoError(t, err)
		}(delta)
	}
	wg.Wait()

	// Обновления сериализуются: ни одно не теряется
	rec, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Equal(t, 120, rec.Points)
	require.Len(t, rec.Log, 2)
}

func TestBanManuallyRequiresRecord(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	_, err := svc.BanManually(ctx, testChat, testUser, testActor, "спам")
	require.ErrorIs(t, err, common.ErrNoRecordForBan)
	require.Equal(t, 0, dir.banCalls)
}

func TestBanManually(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 50, "")
	require.NoError(t, err)

	rec, err := svc.BanManually(ctx, testChat, testUser, testActor, "оскорбления")
	require.NoError(t, err)
	require.Equal(t, TierBanned, rec.Status)
	require.True(t, dir.banned[testUser])

	last := rec.Log[len(rec.Log)-1]
	require.Equal(t, KindExclusion, last.Kind)
	require.Equal(t, "оскорбления", last.Note)
}

func TestBanManuallyPlatformError(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 50, "")
	require.NoError(t, err)

	// Ошибка платформы отдаётся модератору, запись не меняется
	dir.banErr = errors.New("нет прав на бан")
	_, err = svc.BanManually(ctx, testChat, testUser, testActor, "")
	require.Error(t, err)

	rec, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.NotEqual(t, TierBanned, rec.Status)
	require.Len(t, rec.Log, 1)
}

func TestUnbanNotBanned(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Unban(context.Background(), testChat, testUser, testActor)
	require.ErrorIs(t, err, common.ErrNotBanned)
}

func TestUnbanRecomputesStatus(t *testing.T) {
	svc, _, dir, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ApplyManual(ctx, testChat, testUser, testActor, 50, "")
	require.NoError(t, err)
	_, err = svc.BanManually(ctx, testChat, testUser, testActor, "вручную")
	require.NoError(t, err)

	rec, err := svc.Unban(ctx, testChat, testUser, testActor)
	require.NoError(t, err)
	require.Equal(t, 1, dir.unbans)
	require.False(t, dir.banned[testUser])
	// Защёлка снята, статус заново вычислен из баллов
	require.Equal(t, TierActive, rec.Status)
	require.Equal(t, KindReversal, rec.Log[len(rec.Log)-1].Kind)
}

func TestNotes(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	// Заметок нет, пока нет записи
	_, err := svc.GetNotes(ctx, testChat, testUser)
	require.ErrorIs(t, err, common.ErrRecordNotFound)
	err = svc.EditNotes(ctx, testChat, testUser, "текст")
	require.ErrorIs(t, err, common.ErrRecordNotFound)

	_, err = svc.ApplyManual(ctx, testChat, testUser, testActor, 10, "")
	require.NoError(t, err)

	require.NoError(t, svc.EditNotes(ctx, testChat, testUser, "рецидивист"))
	notes, err := svc.GetNotes(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Equal(t, "рецидивист", notes)

	// Правка заметок не трогает журнал
	rec, err := svc.GetRecord(ctx, testChat, testUser)
	require.NoError(t, err)
	require.Len(t, rec.Log, 1)
}
