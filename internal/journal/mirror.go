package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/annel0/rts-pathfind/internal/logging"
	"github.com/annel0/rts-pathfind/internal/navigator"
)

// DefaultSubject — тема NATS для потока изменений
const DefaultSubject = "pathfind.mutations"

// Envelope — сообщение зеркала: запись и узел-источник
type Envelope struct {
	NodeID   string             `json:"node_id"`
	Mutation navigator.Mutation `json:"mutation"`
}

// MessagePublisher — то, что нужно издателю от соединения NATS
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher отправляет каждое изменение в NATS; реализует navigator.MutationSink
type Publisher struct {
	conn      MessagePublisher
	subject   string
	nodeID    string
	published int64
	errors    int64
}

// NewPublisher создаёт издателя; пустой subject — DefaultSubject
func NewPublisher(conn MessagePublisher, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject, nodeID: uuid.NewString()}
}

// NodeID идентификатор узла-источника
func (p *Publisher) NodeID() string {
	return p.nodeID
}

// Append публикует запись
func (p *Publisher) Append(_ context.Context, m navigator.Mutation) error {
	data, err := json.Marshal(Envelope{NodeID: p.nodeID, Mutation: m})
	if err != nil {
		atomic.AddInt64(&p.errors, 1)
		return fmt.Errorf("failed to marshal mutation %d: %w", m.Seq, err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		atomic.AddInt64(&p.errors, 1)
		return fmt.Errorf("failed to publish mutation %d: %w", m.Seq, err)
	}
	atomic.AddInt64(&p.published, 1)
	return nil
}

// Published число отправленных записей
func (p *Publisher) Published() int64 {
	return atomic.LoadInt64(&p.published)
}

// Follower применяет поток изменений к реплике
type Follower struct {
	nav          *navigator.Navigator
	subscription *nats.Subscription
	logger       *logging.Logger
	lastSeq      uint64
	received     int64
	failed       int64
	mu           sync.Mutex
}

// NewFollower создаёт последователя без подписки (для ручной подачи сообщений)
func NewFollower(nav *navigator.Navigator) *Follower {
	return &Follower{nav: nav, logger: logging.GetJournalLogger(), lastSeq: nav.Status().Seq}
}

// Follow подписывает реплику на тему и отписывает при отмене контекста
func Follow(ctx context.Context, conn *nats.Conn, subject string, nav *navigator.Navigator) (*Follower, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	f := NewFollower(nav)
	sub, err := conn.Subscribe(subject, f.HandleMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	f.subscription = sub

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			f.logger.Warn("Отписка от %s: %v", subject, err)
		}
	}()

	f.logger.Info("Реплика подписана на %s с seq=%d", subject, f.lastSeq)
	return f, nil
}

// HandleMessage применяет одно сообщение. Пропуск номеров логируется:
// реплике нужен снимок, чтобы догнать источник.
func (f *Follower) HandleMessage(msg *nats.Msg) {
	atomic.AddInt64(&f.received, 1)

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		atomic.AddInt64(&f.failed, 1)
		f.logger.Error("Failed to unmarshal mutation: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	m := env.Mutation
	if m.Seq <= f.lastSeq {
		return
	}
	if m.Seq != f.lastSeq+1 {
		f.logger.Warn("Пропуск в потоке от %s: ожидалась %d, пришла %d", env.NodeID, f.lastSeq+1, m.Seq)
	}
	if err := f.nav.Apply(context.Background(), m); err != nil {
		atomic.AddInt64(&f.failed, 1)
		f.logger.Error("Запись %d (%s) не применена: %v", m.Seq, m.Op, err)
		return
	}
	f.lastSeq = m.Seq
}

// LastSeq номер последней применённой записи
func (f *Follower) LastSeq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeq
}

// Stats счётчики полученных и неприменённых сообщений
func (f *Follower) Stats() (received, failed int64) {
	return atomic.LoadInt64(&f.received), atomic.LoadInt64(&f.failed)
}

// Connect открывает соединение NATS с переподключением
func Connect(url string) (*nats.Conn, error) {
	logger := logging.GetJournalLogger()
	conn, err := nats.Connect(url,
		nats.MaxReconnects(10),
		nats.ReconnectWait(nats.DefaultReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Tee раздаёт каждую запись нескольким приёмникам и возвращает первую ошибку
type Tee []navigator.MutationSink

// Append передаёт запись каждому приёмнику
func (t Tee) Append(ctx context.Context, m navigator.Mutation) error {
	var firstErr error
	for _, sink := range t {
		if err := sink.Append(ctx, m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
