package delivery

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/internal/metrics"
	"support_chat/pkg/logger"
)

const publishTimeout = 5 * time.Second

type publishJob struct {
	topic string
	scope string
	event domain.Event
}

// Dispatcher - пул воркеров перед транспортом. Публикация только ставит событие в очередь;
// при заполненной очереди событие отбрасывается. У каждого воркера своя очередь, топик
// всегда попадает в одну и ту же, поэтому события топика уходят в порядке постановки.
type Dispatcher struct {
	publisher Publisher
	queues    []chan publishJob
	log       logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Channel = (*Dispatcher)(nil)

func NewDispatcher(publisher Publisher, workers, queueSize int, log logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	// queueSize - общий объем, делится между воркерами
	perWorker := queueSize / workers
	if perWorker <= 0 {
		perWorker = 1
	}

	d := &Dispatcher{
		publisher: publisher,
		queues:    make([]chan publishJob, workers),
		log:       log,
	}

	for i := range d.queues {
		d.queues[i] = make(chan publishJob, perWorker)
		d.wg.Add(1)
		go d.work(d.queues[i])
	}

	return d
}

func (d *Dispatcher) PublishToRoom(_ context.Context, roomID uuid.UUID, event domain.Event) {
	d.enqueue(publishJob{topic: RoomTopic(roomID), scope: "room", event: event})
}

func (d *Dispatcher) PublishToUser(_ context.Context, userID uuid.UUID, event domain.Event) {
	d.enqueue(publishJob{topic: UserTopic(userID), scope: "user", event: event})
}

func (d *Dispatcher) Broadcast(_ context.Context, topic string, event domain.Event) {
	d.enqueue(publishJob{topic: topic, scope: "broadcast", event: event})
}

func (d *Dispatcher) enqueue(job publishJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("Dispatcher is closed, dropping event", "topic", job.topic, "type", string(job.event.Type))
		return
	}

	select {
	case d.queueFor(job.topic) <- job:
		metrics.DeliveriesPublished.WithLabelValues(job.scope).Inc()
	default:
		metrics.DeliveriesDropped.WithLabelValues("dispatcher").Inc()
		d.log.Warn("Delivery queue full, dropping event", "topic", job.topic, "type", string(job.event.Type))
	}
}

func (d *Dispatcher) queueFor(topic string) chan publishJob {
	if len(d.queues) == 1 {
		return d.queues[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return d.queues[h.Sum32()%uint32(len(d.queues))]
}

func (d *Dispatcher) work(queue <-chan publishJob) {
	defer d.wg.Done()

	for job := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := d.publisher.Publish(ctx, job.topic, job.event); err != nil {
			metrics.DeliveryFailures.Inc()
			d.log.Warn("Failed to deliver event", "error", err, "topic", job.topic, "type", string(job.event.Type))
		}
		cancel()
	}
}

// Close прекращает прием событий и дожидается отправки уже поставленных в очередь
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, queue := range d.queues {
		close(queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("Delivery dispatcher stopped")
}
