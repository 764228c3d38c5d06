package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/service"
	"github.com/qs3c/datafair_server/internal/testutil"
)

type sentMail struct {
	to     string
	kind   string
	detail string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) SendPayoutCompleted(to string, amount float64, method, externalID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to: to, kind: "completed", detail: externalID})
	return nil
}

func (n *recordingNotifier) SendPayoutFailed(to string, amount float64, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to: to, kind: "failed", detail: reason})
	return nil
}

// flakyGateway 前 failures 次返回暂时性错误
type flakyGateway struct {
	failures int
	calls    int
}

func (g *flakyGateway) Send(ctx context.Context, msg *queue.PayoutMessage) (string, error) {
	g.calls++
	if g.calls <= g.failures {
		return "", errors.New("connection reset")
	}
	return "EXT-1", nil
}

type countingGateway struct {
	calls int32
}

func (g *countingGateway) Send(ctx context.Context, msg *queue.PayoutMessage) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	return "EXT-COUNT", nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func setupProcessor(t *testing.T, gw Gateway) (*Processor, *recordingNotifier, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()
	userRepo := repository.NewUserRepository(db)
	payoutService := service.NewPayoutService(
		db,
		repository.NewPayoutRepository(db),
		repository.NewEarningRepository(db),
		userRepo,
		repository.NewActivityRepository(db),
		nil,
		nil,
		cfg,
	)

	notifier := &recordingNotifier{}
	processor := NewProcessor(payoutService, userRepo, gw, notifier, cfg)
	processor.retryBase = time.Millisecond

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return processor, notifier, db, cleanup
}

func TestProcessor_Process_Completed(t *testing.T) {
	processor, notifier, db, cleanup := setupProcessor(t, &SimulatedGateway{})
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithEmail("payee@example.com"))
	earning := testutil.TestEarning(t, db, user.ID, 25)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusPending)

	err := processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID})
	require.NoError(t, err)

	var settled model.Payout
	require.NoError(t, db.First(&settled, payout.ID).Error)
	assert.Equal(t, model.PayoutStatusCompleted, settled.Status)
	assert.Contains(t, settled.ExternalID, "PAYPAL-")
	assert.NotNil(t, settled.ProcessedAt)
	assert.NotNil(t, settled.PaidAt)

	var paid model.Earning
	require.NoError(t, db.First(&paid, earning.ID).Error)
	assert.Equal(t, model.EarningStatusPaid, paid.Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "payee@example.com", notifier.sent[0].to)
	assert.Equal(t, "completed", notifier.sent[0].kind)
	assert.Equal(t, settled.ExternalID, notifier.sent[0].detail)
}

func TestProcessor_Process_Rejected(t *testing.T) {
	processor, notifier, db, cleanup := setupProcessor(t, &SimulatedGateway{FailMethods: []string{"paypal"}})
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestEarning(t, db, user.ID, 25)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusPending)

	require.NoError(t, processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID}))

	var settled model.Payout
	require.NoError(t, db.First(&settled, payout.ID).Error)
	assert.Equal(t, model.PayoutStatusFailed, settled.Status)
	assert.Equal(t, "支付通道拒绝了该提现方式", settled.FailureReason)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "failed", notifier.sent[0].kind)
}

func TestProcessor_Process_RetriesTransient(t *testing.T) {
	gw := &flakyGateway{failures: 2}
	processor, _, db, cleanup := setupProcessor(t, gw)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestEarning(t, db, user.ID, 25)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusPending)

	require.NoError(t, processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID}))

	assert.Equal(t, 3, gw.calls)
	var settled model.Payout
	require.NoError(t, db.First(&settled, payout.ID).Error)
	assert.Equal(t, model.PayoutStatusCompleted, settled.Status)
	assert.Equal(t, "EXT-1", settled.ExternalID)
}

func TestProcessor_Process_RetriesExhausted(t *testing.T) {
	gw := &flakyGateway{failures: 10}
	processor, _, db, cleanup := setupProcessor(t, gw)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestEarning(t, db, user.ID, 25)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusPending)

	require.NoError(t, processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID}))

	// 默认重试 2 次
	assert.Equal(t, 3, gw.calls)
	var settled model.Payout
	require.NoError(t, db.First(&settled, payout.ID).Error)
	assert.Equal(t, model.PayoutStatusFailed, settled.Status)
	assert.Equal(t, "支付通道暂时不可用", settled.FailureReason)
}

func TestProcessor_Process_SkipsTerminal(t *testing.T) {
	gw := &flakyGateway{}
	processor, notifier, db, cleanup := setupProcessor(t, gw)
	defer cleanup()

	user := testutil.TestUser(t, db)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusFailed)

	require.NoError(t, processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID}))
	assert.Zero(t, gw.calls)
	assert.Empty(t, notifier.sent)
}

func TestProcessor_Process_SkipsProcessing(t *testing.T) {
	gw := &countingGateway{}
	processor, notifier, db, cleanup := setupProcessor(t, gw)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestEarning(t, db, user.ID, 25)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusProcessing)

	require.NoError(t, processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID}))
	assert.Zero(t, atomic.LoadInt32(&gw.calls))
	assert.Empty(t, notifier.sent)

	var unchanged model.Payout
	require.NoError(t, db.First(&unchanged, payout.ID).Error)
	assert.Equal(t, model.PayoutStatusProcessing, unchanged.Status)
}

func TestProcessor_Process_DuplicateMessagesSendOnce(t *testing.T) {
	gw := &countingGateway{}
	processor, _, db, cleanup := setupProcessor(t, gw)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestEarning(t, db, user.ID, 25)
	payout := testutil.TestPayout(t, db, user.ID, 25, model.PayoutStatusPending)

	// Recover 重新入队后，队列里可能同时存在同一笔提现的多条消息
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, processor.Process(context.Background(), &queue.PayoutMessage{PayoutID: payout.ID}))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&gw.calls))

	var settled model.Payout
	require.NoError(t, db.First(&settled, payout.ID).Error)
	assert.Equal(t, model.PayoutStatusCompleted, settled.Status)
	assert.Equal(t, "EXT-COUNT", settled.ExternalID)
}

func TestProcessor_RecoverAndRun(t *testing.T) {
	processor, _, db, cleanup := setupProcessor(t, &SimulatedGateway{})
	defer cleanup()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := queue.NewQueue(client, "payout_queue_test")

	user := testutil.TestUser(t, db)
	testutil.TestEarning(t, db, user.ID, 50)
	first := testutil.TestPayout(t, db, user.ID, 20, model.PayoutStatusPending)
	second := testutil.TestPayout(t, db, user.ID, 15, model.PayoutStatusPending)
	testutil.TestPayout(t, db, user.ID, 10, model.PayoutStatusCompleted)

	pushed, err := processor.Recover(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, pushed)

	length, err := q.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		processor.Run(ctx, q, 1)
		close(finished)
	}()

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.Payout{}).
			Where("id IN ? AND status = ?", []int64{first.ID, second.ID}, model.PayoutStatusCompleted).
			Count(&count)
		return count == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-finished:
	case <-time.After(popTimeout + 2*time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestSimulatedGateway(t *testing.T) {
	gw := &SimulatedGateway{FailMethods: []string{"crypto"}}

	id, err := gw.Send(context.Background(), &queue.PayoutMessage{PayoutID: 1, Method: "bank"})
	require.NoError(t, err)
	assert.Contains(t, id, "BANK-")

	_, err = gw.Send(context.Background(), &queue.PayoutMessage{PayoutID: 2, Method: "Crypto"})
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.False(t, ge.Transient)
}
