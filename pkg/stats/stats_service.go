package stats

import (
	"sync"

	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	log "github.com/sirupsen/logrus"
)

type StatsService interface {
	GetStats() Summary
}

// Collector keeps the worker's Summary up to date from the lifecycle events on the bus.
type Collector struct {
	mu            sync.Mutex
	summary       Summary
	unsubscribers []func()
}

func NewCollector(bus *event_bus.EventBus, clock utils.Clock) *Collector {
	c := &Collector{
		summary: Summary{Since: clock.Now(), ByPath: make(map[string]int)},
	}
	c.unsubscribers = []func(){
		event_bus.SubscribeTyped(bus, event_bus.PlanningDispatched, c.onDispatched),
		event_bus.SubscribeTyped(bus, event_bus.PlanningFailed, c.onFailed),
		event_bus.SubscribeTyped(bus, event_bus.QueueMessageDropped, c.onDropped),
		event_bus.SubscribeTyped(bus, event_bus.TrainingRecordInserted, c.onRecordInserted),
		event_bus.SubscribeTyped(bus, event_bus.TrainingRecordDeleted, c.onRecordDeleted),
	}
	return c
}

func (c *Collector) GetStats() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary.clone()
}

// Close stops collecting.
func (c *Collector) Close() {
	for _, unsubscribe := range c.unsubscribers {
		unsubscribe()
	}
}

func (c *Collector) onDispatched(e event_bus.EventT[event_bus.PlanningDispatchedData]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Dispatched++
	c.summary.AttendeeFailures += e.Data.AttendeeFailures
	c.summary.ByPath[e.Data.Path]++
	c.summary.TotalDispatchTime += e.Data.Duration
	c.summary.LastDispatch = e.Timestamp
	return nil
}

func (c *Collector) onFailed(e event_bus.EventT[event_bus.PlanningFailedData]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Failed++
	if e.Data.Err != nil {
		c.summary.LastFailure = e.Data.Err.Error()
	}
	return nil
}

func (c *Collector) onDropped(e event_bus.EventT[event_bus.MessageDroppedData]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.Dropped++
	log.Debugf("message %s dropped after %d deliveries: %s", e.Data.MessageId, e.Data.Deliveries, e.Data.Reason)
	return nil
}

func (c *Collector) onRecordInserted(e event_bus.EventT[event_bus.TrainingRecordChanged]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.RecordsInserted++
	return nil
}

func (c *Collector) onRecordDeleted(e event_bus.EventT[event_bus.TrainingRecordChanged]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.RecordsDeleted++
	return nil
}
